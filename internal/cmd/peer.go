package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Alia5/keybridge/device/keyboard"
	"github.com/Alia5/keybridge/relayclient"
)

// Peer groups the relay peer subcommands.
type Peer struct {
	Type    PeerType    `cmd:"" help:"Type text on the host through the relay"`
	Charter PeerCharter `cmd:"" help:"Replace the bridge charter buffer"`
	Status  PeerStatus  `cmd:"" help:"Send a status sentinel"`
	Listen  PeerListen  `cmd:"" help:"Print the keyboard reports the bridge mirrors"`
}

// PeerConn holds the flags every peer subcommand needs.
type PeerConn struct {
	Addr         string        `help:"Relay address of the bridge" default:"127.0.0.1:8080" env:"KEYBRIDGE_PEER_ADDR"`
	Password     string        `help:"Relay password, if the bridge requires one" env:"KEYBRIDGE_PEER_PASSWORD"`
	DialTimeout  time.Duration `help:"Connect timeout" default:"3s" env:"KEYBRIDGE_PEER_DIAL_TIMEOUT"`
	WriteTimeout time.Duration `help:"Write timeout" default:"2s" env:"KEYBRIDGE_PEER_WRITE_TIMEOUT"`
}

func (c PeerConn) dial(ctx context.Context, logger *slog.Logger) (*relayclient.Client, error) {
	cl, err := relayclient.Dial(ctx, c.Addr, &relayclient.Config{
		DialTimeout:  c.DialTimeout,
		WriteTimeout: c.WriteTimeout,
		Password:     c.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("connect relay %s: %w", c.Addr, err)
	}
	logger.Debug("connected to relay", "addr", c.Addr, "encrypted", c.Password != "")
	return cl, nil
}

type PeerType struct {
	PeerConn `embed:""`
	Text     []string      `arg:"" help:"Text to type; words are joined with spaces"`
	Delay    time.Duration `help:"Pause between frames" default:"5ms"`
	Enter    bool          `help:"Press Enter after the text"`
}

func (p *PeerType) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cl, err := p.dial(ctx, logger)
	if err != nil {
		return err
	}
	defer cl.Close()

	text := strings.Join(p.Text, " ")
	if p.Enter {
		text += "\n"
	}
	if err := cl.TypeText(ctx, text, p.Delay); err != nil {
		return err
	}
	logger.Info("typed", "chars", len(text))
	return nil
}

type PeerCharter struct {
	PeerConn `embed:""`
	Text     string `arg:"" optional:"" help:"Charter text"`
	File     string `help:"Read the charter text from this file instead" type:"existingfile"`
}

func (p *PeerCharter) Run(logger *slog.Logger) error {
	text := p.Text
	if p.File != "" {
		b, err := os.ReadFile(p.File)
		if err != nil {
			return err
		}
		text = string(b)
	}
	if text == "" {
		return errors.New("no charter text given")
	}
	cl, err := p.dial(context.Background(), logger)
	if err != nil {
		return err
	}
	defer cl.Close()
	if err := cl.UploadCharter(text); err != nil {
		return err
	}
	logger.Info("charter uploaded", "bytes", len(text))
	return nil
}

type PeerStatus struct {
	PeerConn `embed:""`
	Sentinel string `arg:"" help:"Sentinel to send" enum:"success,error,command-on,command-off"`
}

func (p *PeerStatus) Run(logger *slog.Logger) error {
	s, ok := keyboard.ParseSentinelName(p.Sentinel)
	if !ok {
		return fmt.Errorf("unknown sentinel %q", p.Sentinel)
	}
	cl, err := p.dial(context.Background(), logger)
	if err != nil {
		return err
	}
	defer cl.Close()
	return cl.SendSentinel(s)
}

type PeerListen struct {
	PeerConn `embed:""`
	Text     bool `help:"Print typed characters instead of raw reports"`
}

func (p *PeerListen) Run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cl, err := p.dial(ctx, logger)
	if err != nil {
		return err
	}
	defer cl.Close()

	var prev keyboard.KeyReport
	return cl.Listen(ctx, func(r keyboard.KeyReport) {
		defer func() { prev = r }()
		if !p.Text {
			fmt.Println(r.String())
			return
		}
		for _, code := range r.NewlyPressed(prev) {
			if k, ok := keyboard.LookupCode(code, r.Shifted()); ok && k.HasASCII() {
				fmt.Print(string(k.Char()))
			}
		}
	})
}
