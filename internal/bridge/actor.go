package bridge

import (
	"context"
	"io"

	"github.com/Alia5/keybridge/device/keyboard"
	"github.com/Alia5/keybridge/internal/log"
)

// event is one unit of work for the session goroutine.
type event interface {
	apply(ctx context.Context, s *Session)
}

type localEvent struct{ buf []byte }

func (e localEvent) apply(ctx context.Context, s *Session) {
	r, ok := keyboard.Normalize(e.buf)
	if !ok {
		s.logger.Debug("short HID buffer ignored", "bytes", len(e.buf))
		return
	}
	s.logger.Log(ctx, log.LevelTrace, "local report", "report", r.String())
	s.HandleLocal(ctx, r)
}

type peerConnectedEvent struct {
	id string
	w  io.Writer
}

func (e peerConnectedEvent) apply(_ context.Context, s *Session) { s.PeerConnected(e.id, e.w) }

type peerBytesEvent struct {
	id   string
	data []byte
}

func (e peerBytesEvent) apply(_ context.Context, s *Session) { s.HandlePeerBytes(e.id, e.data) }

type peerClosedEvent struct{ id string }

func (e peerClosedEvent) apply(_ context.Context, s *Session) { s.PeerClosed(e.id) }

type callEvent struct {
	fn   func(ctx context.Context, s *Session)
	done chan struct{}
}

func (e callEvent) apply(ctx context.Context, s *Session) {
	defer close(e.done)
	e.fn(ctx, s)
}

// Run processes events until ctx is cancelled. Everything that touches the
// session state happens on this goroutine, in arrival order.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info("bridge session running", "mode", s.mode.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("bridge session stopped")
			return nil
		case ev := <-s.events:
			ev.apply(ctx, s)
		}
	}
}

func (s *Session) post(ctx context.Context, ev event) error {
	select {
	case s.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PostLocal queues a raw HID input buffer. buf is copied.
func (s *Session) PostLocal(ctx context.Context, buf []byte) error {
	return s.post(ctx, localEvent{buf: append([]byte(nil), buf...)})
}

// PostPeerConnected queues the arrival of relay peer id.
func (s *Session) PostPeerConnected(ctx context.Context, id string, w io.Writer) error {
	return s.post(ctx, peerConnectedEvent{id: id, w: w})
}

// PostPeerBytes queues bytes read from relay peer id. data is copied.
func (s *Session) PostPeerBytes(ctx context.Context, id string, data []byte) error {
	return s.post(ctx, peerBytesEvent{id: id, data: append([]byte(nil), data...)})
}

// PostPeerClosed queues the departure of relay peer id.
func (s *Session) PostPeerClosed(ctx context.Context, id string) error {
	return s.post(ctx, peerClosedEvent{id: id})
}

// Call runs fn on the session goroutine and waits for it to finish.
func (s *Session) Call(ctx context.Context, fn func(ctx context.Context, s *Session)) error {
	done := make(chan struct{})
	if err := s.post(ctx, callEvent{fn: fn, done: done}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
