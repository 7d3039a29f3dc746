package bridge

import (
	"github.com/Alia5/keybridge/device/keyboard"
)

// CharterBuffer holds text uploaded by a peer that is typed one character
// per trigger.
type CharterBuffer struct {
	text []byte
}

// Set replaces the content.
func (c *CharterBuffer) Set(text string) { c.text = []byte(text) }

// Clear empties the buffer.
func (c *CharterBuffer) Clear() { c.text = c.text[:0] }

// Len returns the number of characters left.
func (c *CharterBuffer) Len() int { return len(c.text) }

// String returns the remaining text.
func (c *CharterBuffer) String() string { return string(c.text) }

// Drain removes and returns the first character.
func (c *CharterBuffer) Drain() (byte, bool) {
	if len(c.text) == 0 {
		return 0, false
	}
	ch := c.text[0]
	c.text = c.text[1:]
	return ch, true
}

// SetCharterText replaces the charter buffer content.
func (s *Session) SetCharterText(text string) {
	s.charterBuf.Set(text)
	s.logger.Info("charter buffer set", "chars", len(text))
}

// CharterText returns what is left in the charter buffer.
func (s *Session) CharterText() string { return s.charterBuf.String() }

// DrainCharter types the first charter character. It returns false when the
// buffer is empty.
func (s *Session) DrainCharter() bool {
	ch, ok := s.charterBuf.Drain()
	if !ok {
		return false
	}
	s.typeCharter(ch)
	return true
}

// DumpCharter types the whole charter buffer and returns how many characters
// were drained.
func (s *Session) DumpCharter() int {
	n := 0
	for s.DrainCharter() {
		n++
	}
	s.logger.Info("charter dumped", "chars", n)
	return n
}

// ClearCharter empties the charter buffer without typing it.
func (s *Session) ClearCharter() {
	s.charterBuf.Clear()
	s.logger.Info("charter buffer cleared")
}

// typeCharter sends one character as press + release with short pauses so
// the host registers each key.
func (s *Session) typeCharter(ch byte) {
	press, release, ok := keyboard.TypeChar(ch)
	if !ok {
		s.logger.Info("charter character not in keymap, skipped", "char", ch)
		return
	}
	s.send(press)
	s.sleep(s.cfg.TypeDelay)
	s.send(release)
	s.sleep(s.cfg.TypeDelay)
}

// charterControl handles a key pressed while the typing helper is held.
func (s *Session) charterControl(code uint8) {
	k := s.cfg.Keys
	switch code {
	case k.ToggleCharter:
		s.SetCharter(!s.charter)
	case k.DumpCharter:
		s.DumpCharter()
	case k.ClearCharter:
		s.ClearCharter()
	default:
		if !s.DrainCharter() {
			s.logger.Debug("charter buffer empty")
		}
	}
}
