package hid

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/Alia5/keybridge/device/keyboard"
	"github.com/Alia5/keybridge/internal/log"
)

type deadliner interface {
	SetWriteDeadline(t time.Time) error
}

// WriterSender writes 8-byte reports to w. When w supports write deadlines
// every write is bounded by the configured timeout.
type WriterSender struct {
	mu        sync.Mutex
	w         io.Writer
	timeout   time.Duration
	rawLogger log.RawLogger
}

// NewWriterSender wraps w. A zero timeout disables deadlines.
func NewWriterSender(w io.Writer, timeout time.Duration, rawLogger log.RawLogger) *WriterSender {
	if rawLogger == nil {
		rawLogger = log.NewRaw(nil)
	}
	return &WriterSender{w: w, timeout: timeout, rawLogger: rawLogger}
}

// OpenGadget opens a USB gadget HID node such as /dev/hidg0.
func OpenGadget(path string, timeout time.Duration, rawLogger log.RawLogger) (*WriterSender, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0o666)
	if err != nil {
		return nil, fmt.Errorf("open gadget %s: %w", path, err)
	}
	return NewWriterSender(f, timeout, rawLogger), nil
}

func (s *WriterSender) SendReport(r keyboard.KeyReport) error {
	b := r.BuildReport()
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.w.(deadliner); ok && s.timeout > 0 {
		_ = d.SetWriteDeadline(time.Now().Add(s.timeout))
	}
	if _, err := s.w.Write(b); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	s.rawLogger.Log(false, b)
	return nil
}

// Close closes the underlying writer if it is closable.
func (s *WriterSender) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// RawSender is the dry-run sender: reports only reach the raw dump.
type RawSender struct {
	rawLogger log.RawLogger
}

func NewRawSender(rawLogger log.RawLogger) *RawSender {
	if rawLogger == nil {
		rawLogger = log.NewRaw(nil)
	}
	return &RawSender{rawLogger: rawLogger}
}

func (s *RawSender) SendReport(r keyboard.KeyReport) error {
	s.rawLogger.Log(false, r.BuildReport())
	return nil
}

func (s *RawSender) Close() error { return nil }
