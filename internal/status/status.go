// Package status drives the bridge status indicator.
package status

import (
	"log/slog"
	"sync"
)

// Status is what the indicator currently shows.
type Status int

const (
	Idle Status = iota
	Command
	Busy
	Success
	Error
)

var names = [...]string{"idle", "command", "busy", "success", "error"}

// Colors follow the status LED of the reference board.
var colors = [...]string{"blue", "white", "orange", "green", "red"}

func (s Status) String() string {
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// Color returns the LED color associated with s.
func (s Status) Color() string {
	if int(s) < len(colors) {
		return colors[s]
	}
	return "off"
}

// Indicator shows the bridge status to the operator.
type Indicator interface {
	Set(Status)
}

// LogIndicator reports status changes through the logger and remembers the
// last value.
type LogIndicator struct {
	logger *slog.Logger
	mu     sync.Mutex
	cur    Status
}

func NewLogIndicator(logger *slog.Logger) *LogIndicator {
	return &LogIndicator{logger: logger}
}

func (l *LogIndicator) Set(s Status) {
	l.mu.Lock()
	changed := l.cur != s
	l.cur = s
	l.mu.Unlock()
	if changed {
		l.logger.Info("status", "state", s.String(), "color", s.Color())
	}
}

// Current returns the last status set.
func (l *LogIndicator) Current() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cur
}
