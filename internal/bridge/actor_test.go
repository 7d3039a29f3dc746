package bridge_test

import (
	"context"
	"testing"
	"time"

	"github.com/Alia5/keybridge/device/keyboard"
	"github.com/Alia5/keybridge/internal/bridge"
	"github.com/Alia5/keybridge/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startSession(t *testing.T, h *harness) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("session did not stop")
		}
	})
	return ctx
}

func TestActorProcessesEventsInOrder(t *testing.T) {
	h := newHarness(t, nil)
	ctx := startSession(t, h)

	require.NoError(t, h.s.PostLocal(ctx, []byte{1, 0, keyboard.KeyA, 0, 0, 0, 0, 0}))
	require.NoError(t, h.s.PostLocal(ctx, []byte{1, 0, 0, 0, 0, 0, 0, 0}))
	require.NoError(t, h.s.PostLocal(ctx, []byte{1, 0}), "short buffers are ignored, not fatal")

	data := frame(keyboard.Press(0, keyboard.KeyB))
	require.NoError(t, h.s.PostPeerConnected(ctx, "peer", nil))
	require.NoError(t, h.s.PostPeerBytes(ctx, "peer", data))
	data[2] = keyboard.KeyZ // the queued bytes are a copy

	var got []keyboard.KeyReport
	var peer string
	err := h.s.Call(ctx, func(_ context.Context, s *bridge.Session) {
		got = append(got, h.out.reports...)
		peer = s.PeerID()
	})
	require.NoError(t, err)

	assert.Equal(t, []keyboard.KeyReport{
		keyboard.Press(0, keyboard.KeyA),
		keyboard.Release(),
		keyboard.Press(0, keyboard.KeyB),
	}, got)
	assert.Equal(t, "peer", peer)

	require.NoError(t, h.s.PostPeerClosed(ctx, "peer"))
	require.NoError(t, h.s.Call(ctx, func(_ context.Context, s *bridge.Session) {
		peer = s.PeerID()
	}))
	assert.Empty(t, peer)
}

func TestActorPostHonoursContext(t *testing.T) {
	cfg := bridge.DefaultConfig()
	cfg.QueueSize = 1
	s := bridge.New(cfg, &recorder{}, &fakeRemote{}, log.Discard())

	require.NoError(t, s.PostLocal(context.Background(), []byte{1, 0, 0, 0, 0, 0, 0, 0}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.PostLocal(ctx, []byte{1, 0, 0, 0, 0, 0, 0, 0}), context.Canceled)
	assert.ErrorIs(t, s.Call(ctx, func(context.Context, *bridge.Session) {}), context.Canceled)
}
