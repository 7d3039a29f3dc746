package bridge

import (
	"time"

	"github.com/Alia5/keybridge/device/keyboard"
)

// Config controls the interception layer.
type Config struct {
	CommandCapacity    int           `help:"Maximum keys held in the command buffer" default:"512" env:"KEYBRIDGE_COMMAND_CAPACITY"`
	Feedback           bool          `help:"Type short acknowledgements (and erase them) when commands run" default:"true" negatable:"" env:"KEYBRIDGE_FEEDBACK"`
	FeedbackHold       time.Duration `help:"How long an acknowledgement stays on screen before it is erased" default:"200ms" env:"KEYBRIDGE_FEEDBACK_HOLD"`
	TypeDelay          time.Duration `help:"Pause between press and release when typing charter text" default:"5ms" env:"KEYBRIDGE_TYPE_DELAY"`
	Prompt             string        `help:"Prompt sent with the send command" default:"Answer the question shown in the captured screen." env:"KEYBRIDGE_PROMPT"`
	CharterBlocksModes bool          `help:"Refuse command and key-press mode while charter mode is active" default:"false" env:"KEYBRIDGE_CHARTER_BLOCKS_MODES"`
	MaxCharter         int           `help:"Largest charter upload accepted from a peer, in bytes" default:"65536" env:"KEYBRIDGE_MAX_CHARTER"`
	Mirror             bool          `help:"Copy every local keyboard report to the connected relay peer" default:"true" negatable:"" env:"KEYBRIDGE_MIRROR"`
	QueueSize          int           `help:"Pending events the session accepts before producers block" default:"64" env:"KEYBRIDGE_QUEUE_SIZE"`

	Keys KeyConfig `embed:"" prefix:"keys."`
}

// KeyConfig assigns the control scan codes. Values are HID usage codes.
type KeyConfig struct {
	Capture        uint8 `help:"Quick capture key (default F13)" default:"104" env:"KEYBRIDGE_KEYS_CAPTURE"`
	Send           uint8 `help:"Quick send key (default F14)" default:"105" env:"KEYBRIDGE_KEYS_SEND"`
	DumpMessage    uint8 `help:"Type the pending message at once (default F15)" default:"106" env:"KEYBRIDGE_KEYS_DUMP_MESSAGE"`
	ToggleCommand  uint8 `help:"Toggle command mode (default F16)" default:"107" env:"KEYBRIDGE_KEYS_TOGGLE_COMMAND"`
	ToggleKeyPress uint8 `help:"Toggle key-press mode (default F17)" default:"108" env:"KEYBRIDGE_KEYS_TOGGLE_KEY_PRESS"`
	Helper         uint8 `help:"Typing helper; hold it for charter controls (default F18)" default:"109" env:"KEYBRIDGE_KEYS_HELPER"`
	ToggleCharter  uint8 `help:"With helper: toggle charter mode (default F19)" default:"110" env:"KEYBRIDGE_KEYS_TOGGLE_CHARTER"`
	DumpCharter    uint8 `help:"With helper: type the whole charter buffer (default F20)" default:"111" env:"KEYBRIDGE_KEYS_DUMP_CHARTER"`
	ClearCharter   uint8 `help:"With helper: clear the charter buffer (default F21)" default:"112" env:"KEYBRIDGE_KEYS_CLEAR_CHARTER"`
}

// DefaultConfig mirrors the flag defaults.
func DefaultConfig() Config {
	return Config{
		CommandCapacity: 512,
		Feedback:        true,
		FeedbackHold:    200 * time.Millisecond,
		TypeDelay:       5 * time.Millisecond,
		Prompt:          "Answer the question shown in the captured screen.",
		MaxCharter:      64 * 1024,
		Mirror:          true,
		QueueSize:       64,
		Keys:            DefaultKeys(),
	}
}

// DefaultKeys puts the controls on F13..F21.
func DefaultKeys() KeyConfig {
	return KeyConfig{
		Capture:        keyboard.KeyF13,
		Send:           keyboard.KeyF14,
		DumpMessage:    keyboard.KeyF15,
		ToggleCommand:  keyboard.KeyF16,
		ToggleKeyPress: keyboard.KeyF17,
		Helper:         keyboard.KeyF18,
		ToggleCharter:  keyboard.KeyF19,
		DumpCharter:    keyboard.KeyF20,
		ClearCharter:   keyboard.KeyF21,
	}
}

// isControl reports whether code is one of the keys handled outside the
// helper chord.
func (k KeyConfig) isControl(code uint8) bool {
	switch code {
	case k.Capture, k.Send, k.DumpMessage, k.ToggleCommand, k.ToggleKeyPress, k.Helper:
		return true
	}
	return false
}
