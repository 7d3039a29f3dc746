package bridge

import (
	"strings"

	"github.com/Alia5/keybridge/device/keyboard"
)

// Player holds the pending message and its compiled reports. The cursor
// indexes the next report to play.
type Player struct {
	text    string
	reports []keyboard.KeyReport
	cursor  int
	pressed bool
	cancel  bool
}

// Compile turns text into one press report per character. Escapes \n, \t,
// \\ and \" produce a single report. Characters missing from the key table
// and unknown escapes such as \x compile to one blank (all-zero) report each;
// their count is returned as unmapped. A trailing lone backslash is typed.
func Compile(text string) (reports []keyboard.KeyReport, unmapped int) {
	reports = make([]keyboard.KeyReport, 0, len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\\' && i+1 < len(text) {
			switch text[i+1] {
			case 'n':
				reports = append(reports, keyboard.Press(0, keyboard.KeyEnter))
				i++
				continue
			case 't':
				reports = append(reports, keyboard.Press(0, keyboard.KeyTab))
				i++
				continue
			case '\\', '"':
				c = text[i+1]
				i++
			default:
				reports = append(reports, keyboard.KeyReport{})
				unmapped++
				i++
				continue
			}
		}
		r, ok := keyboard.CharReport(c)
		if !ok {
			unmapped++
		}
		reports = append(reports, r)
	}
	return reports, unmapped
}

// Decompile is the inverse of Compile. Enter, Tab and backslash are written
// back as escapes; a quote is written raw, so \" comes back as ". Blank
// reports are skipped.
func Decompile(reports []keyboard.KeyReport) string {
	var sb strings.Builder
	for _, r := range reports {
		code := r.Keys[0]
		switch code {
		case 0:
			continue
		case keyboard.KeyEnter:
			sb.WriteString(`\n`)
			continue
		case keyboard.KeyTab:
			sb.WriteString(`\t`)
			continue
		}
		k, ok := keyboard.LookupCode(code, r.Shifted())
		if !ok || !k.HasASCII() {
			continue
		}
		if k.ASCII == '\\' {
			sb.WriteString(`\\`)
			continue
		}
		sb.WriteByte(byte(k.ASCII))
	}
	return sb.String()
}

// Set replaces the message and compiles it. It clears the cancel flag.
func (p *Player) Set(text string) (reports, unmapped int) {
	p.text = text
	p.reports, unmapped = Compile(text)
	p.cursor = 0
	p.cancel = false
	p.pressed = false
	return len(p.reports), unmapped
}

// Clear drops the message.
func (p *Player) Clear() {
	p.text = ""
	p.reports = nil
	p.cursor = 0
	p.cancel = false
	p.pressed = false
}

// Text returns the message as set.
func (p *Player) Text() string { return p.text }

// Remaining returns the number of reports not yet played.
func (p *Player) Remaining() int { return len(p.reports) - p.cursor }

// HasPending reports whether there is something left to play.
func (p *Player) HasPending() bool { return p.Remaining() > 0 }

// Trigger records that a key was pressed.
func (p *Player) Trigger() { p.pressed = true }

// Pressed reports whether a trigger is waiting to be played.
func (p *Player) Pressed() bool { return p.pressed }

// Cancel asks the next Next call to stop playback.
func (p *Player) Cancel() { p.cancel = true }

// Next pops the next report and clears the trigger. It returns false when the
// message is exhausted or playback was cancelled.
func (p *Player) Next() (keyboard.KeyReport, bool) {
	p.pressed = false
	if p.cancel || p.cursor >= len(p.reports) {
		return keyboard.KeyReport{}, false
	}
	r := p.reports[p.cursor]
	p.cursor++
	return r, true
}

// Rest returns the reports not yet played.
func (p *Player) Rest() []keyboard.KeyReport {
	return p.reports[p.cursor:]
}

// SetMessage replaces the pending message and returns its report count.
// Replacing the message while it plays restarts playback on the new one.
func (s *Session) SetMessage(text string) int {
	n, unmapped := s.player.Set(text)
	if unmapped > 0 {
		s.logger.Warn("message has characters missing from the keymap", "count", unmapped)
	}
	return n
}

// PlayNext emits the next report of the pending message as press + release.
// When nothing is left, or playback was cancelled, it leaves key-press mode
// and clears the message. Calling it again in that state is harmless.
func (s *Session) PlayNext() bool {
	r, ok := s.player.Next()
	if !ok {
		if s.mode == ModeKeyPress {
			s.mode = ModeNormal
			s.logger.Info("key-press mode off, message finished")
		}
		s.player.Clear()
		return false
	}
	s.send(r)
	s.send(keyboard.Release())
	return true
}

// CancelPlayback stops key-press playback at the next trigger.
func (s *Session) CancelPlayback() {
	s.player.Cancel()
}

// ClearMessage drops the pending message and leaves key-press mode.
func (s *Session) ClearMessage() {
	s.player.Clear()
	if s.mode == ModeKeyPress {
		s.mode = ModeNormal
	}
}

// DumpMessage types everything left in the pending message at once.
func (s *Session) DumpMessage() int {
	n := 0
	for _, r := range s.player.Rest() {
		s.send(r)
		s.send(keyboard.Release())
		n++
	}
	s.ClearMessage()
	s.logger.Info("message dumped", "reports", n)
	return n
}

// drive plays one report when key-press mode has a pending trigger.
func (s *Session) drive() {
	if s.mode == ModeKeyPress && s.player.Pressed() {
		s.PlayNext()
	}
}
