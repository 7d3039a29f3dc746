package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Alia5/keybridge/internal/bridge"
	"github.com/Alia5/keybridge/internal/control"
	"github.com/Alia5/keybridge/internal/control/handler"
	"github.com/Alia5/keybridge/internal/hid"
	"github.com/Alia5/keybridge/internal/log"
	"github.com/Alia5/keybridge/internal/relay"
	"github.com/Alia5/keybridge/internal/remote"
)

// Version is reported by the control API ping route. Set at link time.
var Version = "dev"

type Run struct {
	Bridge  bridge.Config  `embed:"" prefix:"bridge."`
	Remote  remote.Config  `embed:"" prefix:"remote."`
	HID     hid.Config     `embed:"" prefix:"hid."`
	Relay   relay.Config   `embed:"" prefix:"relay."`
	Control control.Config `embed:"" prefix:"control."`
	KeyFile bool           `help:"Protect the control API with a generated password stored in the config dir when none is set" default:"true" negatable:"" env:"KEYBRIDGE_KEY_FILE"`
}

// Run is called by Kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.StartBridge(ctx, logger, rawLogger)
}

// StartBridge runs the bridge until ctx is cancelled or a component fails.
func (r *Run) StartBridge(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if r.Control.Addr != "" && r.Control.Password == "" && r.KeyFile {
		pwd, err := loadOrCreateKey(logger)
		if err != nil {
			return err
		}
		r.Control.Password = pwd
	}

	sender, closeSender, err := openSender(r.HID, rawLogger)
	if err != nil {
		return err
	}
	defer func() { _ = closeSender.Close() }()

	rem := remote.New(r.Remote, logger.With("component", "remote"))
	sess := bridge.New(r.Bridge, sender, rem, logger.With("component", "bridge"))

	errCh := make(chan error, 3)
	sessDone := make(chan struct{})
	go func() {
		defer close(sessDone)
		if err := sess.Run(ctx); err != nil {
			errCh <- fmt.Errorf("bridge session: %w", err)
		}
	}()

	logger.Info("Starting KeyBridge", "output", r.HID.Output, "input", r.HID.Input, "remote", rem.Addr())

	if r.Relay.Addr != "" {
		relaySrv, err := relay.New(r.Relay, sess, logger.With("component", "relay"), rawLogger)
		if err != nil {
			return err
		}
		relayErr := make(chan error, 1)
		go func() { relayErr <- relaySrv.ListenAndServe(ctx) }()
		select {
		case err := <-relayErr:
			return fmt.Errorf("relay: %w", err)
		case <-relaySrv.Ready():
		}
		defer func() {
			_ = relaySrv.Close()
			<-relayErr
		}()
	}

	if r.Control.Addr != "" {
		ctlSrv, err := control.New(r.Control, logger.With("component", "control"))
		if err != nil {
			return err
		}
		handler.Register(ctlSrv.Router(), sess, Version)
		if err := ctlSrv.Start(); err != nil {
			logger.Error("failed to start control API", "error", err)
			return err
		}
		defer ctlSrv.Close()
	}

	src, err := openSource(r.HID, r.Bridge.Keys, rawLogger)
	if err != nil {
		return err
	}
	if src != nil {
		defer func() { _ = src.Close() }()
		go func() {
			err := hid.Pump(ctx, src, sess.PostLocal, logger)
			switch {
			case err != nil:
				errCh <- fmt.Errorf("keyboard input: %w", err)
			case r.HID.Input == "terminal" && ctx.Err() == nil:
				// ^C in raw mode never raises SIGINT.
				cancel()
			case ctx.Err() == nil:
				logger.Warn("keyboard input ended; relay and control API stay up")
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
		<-sessDone
		return nil
	case err := <-errCh:
		cancel()
		<-sessDone
		return err
	}
}

func openSender(cfg hid.Config, rawLogger log.RawLogger) (hid.Sender, io.Closer, error) {
	if cfg.Output == "raw" || cfg.Output == "" {
		s := hid.NewRawSender(rawLogger)
		return s, s, nil
	}
	s, err := hid.OpenGadget(cfg.Output, cfg.WriteTimeout, rawLogger)
	if err != nil {
		return nil, nil, err
	}
	return s, s, nil
}

// openSource returns a nil source when input is disabled.
func openSource(cfg hid.Config, keys bridge.KeyConfig, rawLogger log.RawLogger) (hid.Source, error) {
	switch cfg.Input {
	case "none", "":
		return nil, nil
	case "terminal":
		src, err := hid.OpenTerminal(keys)
		if err != nil {
			return nil, errors.Join(err, errors.New("use --hid.input=none to run without a local keyboard"))
		}
		return src, nil
	}
	if strings.HasPrefix(cfg.Input, "/dev/input/") {
		src, err := hid.OpenEvdev(cfg.Input, cfg.Grab, rawLogger)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	src, err := hid.OpenHidraw(cfg.Input, cfg.ReportID, cfg.PollTimeout, rawLogger)
	if err != nil {
		return nil, err
	}
	return src, nil
}
