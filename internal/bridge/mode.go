package bridge

import (
	"errors"
	"fmt"

	"github.com/Alia5/keybridge/device/keyboard"
	"github.com/Alia5/keybridge/internal/status"
)

// Mode is the exclusive interception mode. Charter is tracked separately.
type Mode int

const (
	ModeNormal Mode = iota
	ModeCommand
	ModeKeyPress
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeCommand:
		return "command"
	case ModeKeyPress:
		return "keypress"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ErrRefused is returned for mode transitions that are not allowed in the
// current state. The mode is left unchanged.
var ErrRefused = errors.New("transition refused")

func refused(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRefused, fmt.Sprintf(format, args...))
}

// Mode returns the current exclusive mode.
func (s *Session) Mode() Mode { return s.mode }

// CharterActive reports whether charter mode is on.
func (s *Session) CharterActive() bool { return s.charter }

// ToggleCommand flips between Normal and Command. Leaving Command clears the
// command buffer.
func (s *Session) ToggleCommand() error {
	switch s.mode {
	case ModeCommand:
		s.mode = ModeNormal
		s.cmd.Reset()
		s.logger.Info("command mode off")
		s.status.Set(status.Idle)
		return nil
	case ModeKeyPress:
		return s.refuse(refused("command mode while key-press mode is active"))
	}
	if s.cfg.CharterBlocksModes && s.charter {
		return s.refuse(refused("command mode while charter mode is active"))
	}
	s.leaveNormal()
	s.mode = ModeCommand
	s.logger.Info("command mode on")
	s.status.Set(status.Command)
	return nil
}

// ToggleKeyPress flips key-press playback. Enabling needs a pending message
// and is refused while Command mode is active.
func (s *Session) ToggleKeyPress() error {
	switch s.mode {
	case ModeCommand:
		return s.refuse(refused("key-press mode while command mode is active"))
	case ModeKeyPress:
		s.mode = ModeNormal
		s.logger.Info("key-press mode off", "remaining", s.player.Remaining())
		return nil
	}
	if s.cfg.CharterBlocksModes && s.charter {
		return s.refuse(refused("key-press mode while charter mode is active"))
	}
	if !s.player.HasPending() {
		return s.refuse(refused("key-press mode without a pending message"))
	}
	s.leaveNormal()
	s.mode = ModeKeyPress
	s.logger.Info("key-press mode on", "remaining", s.player.Remaining())
	return nil
}

// SetCharter turns charter mode on or off. A partial upload is discarded.
func (s *Session) SetCharter(on bool) {
	if s.charter == on {
		return
	}
	s.charter = on
	s.relay.upload.Reset()
	s.logger.Info("charter mode", "active", on)
}

func (s *Session) refuse(err error) error {
	s.logger.Info("mode change refused", "mode", s.mode.String(), "charter", s.charter, "reason", err)
	return err
}

// leaveNormal releases whatever the host still sees held before reports stop
// being forwarded.
func (s *Session) leaveNormal() {
	if s.mode == ModeNormal && !s.forwarded.IsEmpty() {
		s.send(keyboard.Release())
	}
}
