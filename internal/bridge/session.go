// Package bridge is the interception layer between the physical keyboard and
// the host: the mode state machine, the command buffer, message playback and
// the relay/charter channel. All state lives in one Session owned by a
// single goroutine.
package bridge

import (
	"context"
	"log/slog"
	"time"

	"github.com/Alia5/keybridge/device/keyboard"
	"github.com/Alia5/keybridge/internal/remote"
	"github.com/Alia5/keybridge/internal/status"
)

// Sender emits reports to the host.
type Sender interface {
	SendReport(keyboard.KeyReport) error
}

// Remote performs the POST exchanges behind capture and send.
type Remote interface {
	PostRequest(ctx context.Context, path string, doc any) remote.Document
}

// Session owns every piece of mutable bridge state. Its methods are not safe
// for concurrent use; Run serializes access for the I/O goroutines.
type Session struct {
	cfg    Config
	logger *slog.Logger
	sender Sender
	remote Remote
	status statusTracker
	sleep  func(time.Duration)

	mode       Mode
	charter    bool
	prev       keyboard.KeyReport // last local report, for press edges
	forwarded  keyboard.KeyReport // last report forwarded to the host
	cmd        *CommandBuffer
	player     Player
	charterBuf CharterBuffer
	relay      relayState

	events chan event
}

// Option customizes a Session.
type Option func(*Session)

// WithIndicator sets the status indicator. The default logs status changes.
func WithIndicator(ind status.Indicator) Option {
	return func(s *Session) { s.status.ind = ind }
}

// WithSleep replaces time.Sleep, which tests use to skip typing delays.
func WithSleep(fn func(time.Duration)) Option {
	return func(s *Session) { s.sleep = fn }
}

// New creates a session that emits reports through sender and reaches the
// remote service through rem.
func New(cfg Config, sender Sender, rem Remote, logger *slog.Logger, opts ...Option) *Session {
	def := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.CommandCapacity <= 0 {
		cfg.CommandCapacity = def.CommandCapacity
	}
	if cfg.MaxCharter <= 0 {
		cfg.MaxCharter = def.MaxCharter
	}
	s := &Session{
		cfg:    cfg,
		logger: logger,
		sender: sender,
		remote: rem,
		sleep:  time.Sleep,
		cmd:    NewCommandBuffer(cfg.CommandCapacity),
		events: make(chan event, cfg.QueueSize),
	}
	for _, o := range opts {
		o(s)
	}
	if s.status.ind == nil {
		s.status.ind = status.NewLogIndicator(logger)
	}
	return s
}

// HandleLocal processes one normalized report from the physical keyboard.
func (s *Session) HandleLocal(ctx context.Context, r keyboard.KeyReport) {
	s.mirror(r)
	pressed := r.NewlyPressed(s.prev)
	s.prev = r
	keys := s.cfg.Keys

	if r.Has(keys.Helper) {
		for _, code := range pressed {
			if code != keys.Helper {
				s.charterControl(code)
			}
		}
		return
	}

	control := false
	for _, code := range pressed {
		switch code {
		case keys.ToggleCommand:
			_ = s.ToggleCommand()
		case keys.ToggleKeyPress:
			_ = s.ToggleKeyPress()
		case keys.Capture:
			s.Dispatch(ctx, CommandCapture)
		case keys.Send:
			s.Dispatch(ctx, CommandSend)
		case keys.DumpMessage:
			s.DumpMessage()
		default:
			s.modeKey(ctx, code, r.Shifted())
			continue
		}
		control = true
	}
	for _, code := range r.Pressed() {
		if keys.isControl(code) {
			control = true
		}
	}

	if s.mode == ModeNormal && !control {
		s.send(r)
	}
	s.drive()
}

// modeKey handles an ordinary key press outside Normal mode.
func (s *Session) modeKey(ctx context.Context, code uint8, shifted bool) {
	switch s.mode {
	case ModeCommand:
		if code == keyboard.KeyEnter || code == keyboard.KeyKpEnter {
			s.submitCommand(ctx)
			return
		}
		s.appendKey(code, shifted)
	case ModeKeyPress:
		s.player.Trigger()
	}
}

// send emits r to the host. Transport errors are logged and dropped.
func (s *Session) send(r keyboard.KeyReport) {
	if err := s.sender.SendReport(r); err != nil {
		s.logger.Warn("send report failed", "report", r.String(), "error", err)
		return
	}
	s.forwarded = r
}

// acknowledge types text, waits, then erases it again.
func (s *Session) acknowledge(text string) {
	if !s.cfg.Feedback {
		return
	}
	typed := 0
	for _, r := range keyboard.TypeString(text) {
		s.send(r)
		if r.IsEmpty() {
			typed++
		}
	}
	s.sleep(s.cfg.FeedbackHold)
	for _, r := range keyboard.EraseString(typed) {
		s.send(r)
	}
}

// statusTracker remembers the last status shown so it can be reported.
type statusTracker struct {
	ind status.Indicator
	cur status.Status
}

func (t *statusTracker) Set(st status.Status) {
	t.cur = st
	t.ind.Set(st)
}

// Snapshot is a read-only view of the session for status queries.
type Snapshot struct {
	Mode           string `json:"mode"`
	Charter        bool   `json:"charter"`
	Status         string `json:"status"`
	Command        string `json:"command"`
	Message        string `json:"message"`
	MessageLeft    int    `json:"messageRemaining"`
	CharterText    string `json:"charterText"`
	Peer           string `json:"peer,omitempty"`
	PeerFrames     int    `json:"peerFrames"`
	CharterPending int    `json:"charterUploadBytes"`
}

// Snapshot captures the current state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Mode:           s.mode.String(),
		Charter:        s.charter,
		Status:         s.status.cur.String(),
		Command:        s.cmd.String(),
		Message:        Decompile(s.player.Rest()),
		MessageLeft:    s.player.Remaining(),
		CharterText:    s.charterBuf.String(),
		Peer:           s.relay.peerID,
		PeerFrames:     s.relay.frames,
		CharterPending: s.relay.upload.Len(),
	}
}
