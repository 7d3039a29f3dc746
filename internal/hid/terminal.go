package hid

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/Alia5/keybridge/device/keyboard"
	"github.com/Alia5/keybridge/internal/bridge"
)

// Chord is the key combination a control character stands for.
type Chord struct {
	Modifiers uint8
	Keys      []uint8
}

// Chords maps terminal control characters onto the bridge control keys, so
// the bridge can be driven from a terminal without function keys.
//
//	^G capture     ^S send          ^D dump message
//	^K command     ^P key-press
//	^T charter     ^Y dump charter  ^X clear charter  ^N type one charter char
func Chords(k bridge.KeyConfig) map[byte]Chord {
	return map[byte]Chord{
		0x07: {Keys: []uint8{k.Capture}},
		0x13: {Keys: []uint8{k.Send}},
		0x04: {Keys: []uint8{k.DumpMessage}},
		0x0b: {Keys: []uint8{k.ToggleCommand}},
		0x10: {Keys: []uint8{k.ToggleKeyPress}},
		0x14: {Keys: []uint8{k.Helper, k.ToggleCharter}},
		0x19: {Keys: []uint8{k.Helper, k.DumpCharter}},
		0x18: {Keys: []uint8{k.Helper, k.ClearCharter}},
		0x0e: {Keys: []uint8{k.Helper, keyboard.KeyN}},
	}
}

const ctrlC = 0x03

type chunk struct {
	data []byte
	err  error
}

// TerminalSource turns bytes typed into a raw-mode terminal into
// press/release buffer pairs. ^C ends the source.
type TerminalSource struct {
	chords  map[byte]Chord
	restore func() error

	pending [][]byte
	carry   []byte
	chunks  chan chunk
	start   sync.Once
	in      io.Reader
	eof     bool
}

// OpenTerminal puts stdin into raw mode. Close restores it.
func OpenTerminal(keys bridge.KeyConfig) (*TerminalSource, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("stdin is not a terminal")
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("raw terminal: %w", err)
	}
	src := NewTerminalSource(os.Stdin, Chords(keys))
	src.restore = func() error { return term.Restore(fd, state) }
	return src, nil
}

// NewTerminalSource reads terminal bytes from r without touching any tty
// state.
func NewTerminalSource(r io.Reader, chords map[byte]Chord) *TerminalSource {
	return &TerminalSource{
		chords: chords,
		in:     r,
		chunks: make(chan chunk, 1),
	}
}

func (t *TerminalSource) reader() {
	for {
		buf := make([]byte, 64)
		n, err := t.in.Read(buf)
		if n > 0 {
			t.chunks <- chunk{data: buf[:n]}
		}
		if err != nil {
			t.chunks <- chunk{err: err}
			return
		}
	}
}

func (t *TerminalSource) ReadReport(ctx context.Context) ([]byte, error) {
	t.start.Do(func() { go t.reader() })
	for len(t.pending) == 0 {
		if t.eof {
			return nil, io.EOF
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case c := <-t.chunks:
			if c.err != nil {
				t.eof = true
				continue
			}
			t.pending, t.carry, t.eof = t.decode(append(t.carry, c.data...))
		}
	}
	buf := t.pending[0]
	t.pending = t.pending[1:]
	return buf, nil
}

// decode converts terminal input into buffers. An escape sequence cut off at
// the end of data is returned as carry.
func (t *TerminalSource) decode(data []byte) (out [][]byte, carry []byte, eof bool) {
	emit := func(mod uint8, keys ...uint8) {
		press := make([]byte, keyboard.ReportSize)
		press[1] = mod
		copy(press[2:], keys)
		out = append(out, press, make([]byte, keyboard.ReportSize))
	}
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch {
		case c == ctrlC:
			return out, nil, true
		case c == 0x1b:
			if i+1 >= len(data) {
				emit(0, keyboard.KeyEscape)
				continue
			}
			if data[i+1] != '[' {
				emit(0, keyboard.KeyEscape)
				continue
			}
			end := csiEnd(data, i+2)
			if end < 0 {
				if len(data)-i > maxCSI {
					// not a sequence we will ever finish; drop it
					return out, nil, false
				}
				return out, append([]byte(nil), data[i:]...), false
			}
			if code, ok := csiKey(data[i+2:end], data[end]); ok {
				emit(0, code)
			}
			i = end
		case c == '\r' || c == '\n':
			emit(0, keyboard.KeyEnter)
		case c == 0x7f || c == 0x08:
			emit(0, keyboard.KeyBackspace)
		default:
			if chord, ok := t.chords[c]; ok {
				emit(chord.Modifiers, chord.Keys...)
				continue
			}
			if r, ok := keyboard.CharReport(c); ok {
				emit(r.Modifiers, r.Keys[0])
			}
		}
	}
	return out, nil, false
}

const maxCSI = 32

// csiEnd returns the index of the final byte (0x40-0x7e) of a CSI sequence
// whose parameters start at from, or -1 when data ends first.
func csiEnd(data []byte, from int) int {
	for j := from; j < len(data); j++ {
		if data[j] >= 0x40 && data[j] <= 0x7e {
			return j
		}
	}
	return -1
}

// csiKey maps a CSI sequence to a key. Modifier parameters such as "1;5"
// are ignored.
func csiKey(params []byte, final byte) (uint8, bool) {
	if final == '~' {
		n, _, _ := strings.Cut(string(params), ";")
		code, ok := tildeKeys[n]
		return code, ok
	}
	code, ok := csiFinals[final]
	return code, ok
}

var csiFinals = map[byte]uint8{
	'A': keyboard.KeyUp,
	'B': keyboard.KeyDown,
	'C': keyboard.KeyRight,
	'D': keyboard.KeyLeft,
	'H': keyboard.KeyHome,
	'F': keyboard.KeyEnd,
}

var tildeKeys = map[string]uint8{
	"1": keyboard.KeyHome,
	"2": keyboard.KeyInsert,
	"3": keyboard.KeyDelete,
	"4": keyboard.KeyEnd,
	"5": keyboard.KeyPageUp,
	"6": keyboard.KeyPageDown,
}

// Close restores the terminal state.
func (t *TerminalSource) Close() error {
	if t.restore != nil {
		return t.restore()
	}
	return nil
}
