// Package hid connects the bridge to real keyboards: the USB gadget the host
// sees, the physical keyboard behind hidraw, and a terminal for bench use.
package hid

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/Alia5/keybridge/device/keyboard"
)

// Sender emits one report to the host.
type Sender interface {
	SendReport(keyboard.KeyReport) error
}

// Source yields raw input buffers in the normalizer layout: byte 0 report
// ID, byte 1 modifiers, bytes 2-7 scan codes.
type Source interface {
	ReadReport(ctx context.Context) ([]byte, error)
	Close() error
}

// Config selects the HID endpoints used by the run command.
type Config struct {
	Output       string        `help:"Report sink: a gadget device node, or 'raw' for a dry run that only dumps reports" default:"/dev/hidg0" env:"KEYBRIDGE_HID_OUTPUT"`
	Input        string        `help:"Keyboard source: /dev/input/eventN (evdev), /dev/hidrawN, 'terminal', or 'none'" default:"terminal" env:"KEYBRIDGE_HID_INPUT"`
	Grab         bool          `help:"Take the evdev keyboard exclusively" default:"true" negatable:"" env:"KEYBRIDGE_HID_GRAB"`
	ReportID     bool          `help:"The hidraw device prefixes reports with a report ID byte" env:"KEYBRIDGE_HID_REPORT_ID"`
	WriteTimeout time.Duration `help:"Deadline for one gadget write" default:"5ms" env:"KEYBRIDGE_HID_WRITE_TIMEOUT"`
	PollTimeout  time.Duration `help:"Poll interval for the hidraw reader" default:"100ms" env:"KEYBRIDGE_HID_POLL_TIMEOUT"`
}

// Pump reads src until ctx ends or the source is exhausted, handing every
// buffer to post. io.EOF from the source ends the pump without error.
func Pump(ctx context.Context, src Source, post func(context.Context, []byte) error, logger *slog.Logger) error {
	for {
		buf, err := src.ReadReport(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info("keyboard source closed")
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := post(ctx, buf); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// bootToNormalized converts a boot protocol report (modifiers, reserved,
// six keys) into the normalizer layout.
func bootToNormalized(boot []byte) []byte {
	out := make([]byte, keyboard.ReportSize)
	if len(boot) == 0 {
		return out
	}
	out[1] = boot[0]
	if len(boot) > 2 {
		copy(out[2:], boot[2:])
	}
	return out
}
