package log

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"
)

// RawLogger dumps raw frames and reports as hex lines.
type RawLogger interface {
	Log(in bool, data []byte)
}

type rawLogger struct {
	w  io.Writer
	mu sync.Mutex
}

// NewRaw creates a new RawLogger. If writer is nil, returns a no-op logger.
func NewRaw(w io.Writer) RawLogger {
	return &rawLogger{w: w}
}

// Log emits a single-line dump with timestamp and hex bytes.
// in=true means bytes received by the bridge, in=false bytes it emitted.
func (r *rawLogger) Log(in bool, data []byte) {
	if len(data) == 0 || r.w == nil {
		return
	}

	dir := "OUT"
	if in {
		dir = "IN "
	}

	var line bytes.Buffer
	fmt.Fprintf(&line, "%s %s %3d bytes:", time.Now().Format("2006/01/02 15:04:05.000"), dir, len(data))
	const hexdigits = "0123456789abcdef"
	for _, b := range data {
		line.WriteByte(' ')
		line.WriteByte(hexdigits[b>>4])
		line.WriteByte(hexdigits[b&0x0f])
	}
	line.WriteByte('\n')

	r.mu.Lock()
	_, _ = r.w.Write(line.Bytes())
	r.mu.Unlock()
}
