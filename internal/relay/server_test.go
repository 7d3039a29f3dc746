package relay_test

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keybridge/device/keyboard"
	"github.com/Alia5/keybridge/internal/auth"
	"github.com/Alia5/keybridge/internal/log"
	"github.com/Alia5/keybridge/internal/relay"
	th "github.com/Alia5/keybridge/internal/testing"
)

func startRelay(t *testing.T, cfg relay.Config, b *th.Bridge) string {
	t.Helper()
	return startRelaySink(t, cfg, b.Session)
}

func startRelaySink(t *testing.T, cfg relay.Config, sink relay.Sink) string {
	t.Helper()
	cfg.Addr = "127.0.0.1:0"
	srv, err := relay.New(cfg, sink, log.Discard(), log.NewRaw(nil))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()
	select {
	case <-srv.Ready():
	case err := <-done:
		t.Fatalf("relay failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not become ready")
	}
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return srv.Addr().String()
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func peerOf(t *testing.T, b *th.Bridge) string {
	t.Helper()
	return b.Snapshot(t).Peer
}

func TestRelayForwardsFrames(t *testing.T) {
	b := th.StartBridge(t, nil)
	addr := startRelay(t, relay.Config{}, b)
	c := dial(t, addr)

	a := keyboard.Press(0, keyboard.KeyA)
	frame := a.BuildReport()
	_, err := c.Write(frame[:5])
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = c.Write(append(frame[5:], keyboard.SentinelSuccess.Report().BuildReport()...))
	require.NoError(t, err)

	require.True(t, th.Eventually(t, func() bool { return len(b.Out.Reports()) == 1 }, 2*time.Second))
	assert.Equal(t, []keyboard.KeyReport{a}, b.Out.Reports())
	require.True(t, th.Eventually(t, func() bool { return b.Snapshot(t).Status == "success" }, 2*time.Second))
}

func TestRelaySupersedesPeer(t *testing.T) {
	b := th.StartBridge(t, nil)
	addr := startRelay(t, relay.Config{}, b)

	first := dial(t, addr)
	require.True(t, th.Eventually(t, func() bool { return peerOf(t, b) != "" }, 2*time.Second))
	firstID := peerOf(t, b)

	second := dial(t, addr)
	require.True(t, th.Eventually(t, func() bool {
		id := peerOf(t, b)
		return id != "" && id != firstID
	}, 2*time.Second))

	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := first.Read(make([]byte, 1))
	assert.Error(t, err, "the superseded peer is disconnected")

	_, err = second.Write(keyboard.Press(0, keyboard.KeyB).BuildReport())
	require.NoError(t, err)
	assert.True(t, th.Eventually(t, func() bool { return len(b.Out.Reports()) == 1 }, 2*time.Second))

	_ = second.Close()
	assert.True(t, th.Eventually(t, func() bool { return peerOf(t, b) == "" }, 2*time.Second))
}

func TestRelayMirrorsLocalReports(t *testing.T) {
	b := th.StartBridge(t, nil)
	addr := startRelay(t, relay.Config{}, b)
	c := dial(t, addr)
	require.True(t, th.Eventually(t, func() bool { return peerOf(t, b) != "" }, 2*time.Second))

	require.NoError(t, b.Session.PostLocal(context.Background(), []byte{1, 0, keyboard.KeyQ, 0, 0, 0, 0, 0}))

	buf := make([]byte, keyboard.ReportSize)
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := io.ReadFull(c, buf)
	require.NoError(t, err)
	var got keyboard.KeyReport
	require.NoError(t, got.UnmarshalBinary(buf))
	assert.Equal(t, keyboard.Press(0, keyboard.KeyQ), got)
}

func TestRelayCharterUpload(t *testing.T) {
	b := th.StartBridge(t, nil)
	addr := startRelay(t, relay.Config{}, b)
	c := dial(t, addr)

	msg := append(keyboard.SentinelCharterBegin.Report().BuildReport(), "be kind\x00"...)
	_, err := c.Write(msg)
	require.NoError(t, err)
	assert.True(t, th.Eventually(t, func() bool { return b.Snapshot(t).CharterText == "be kind" }, 2*time.Second))
	assert.False(t, b.Snapshot(t).Charter)
}

func TestRelayPassword(t *testing.T) {
	b := th.StartBridge(t, nil)
	addr := startRelay(t, relay.Config{Password: "pw", AuthTimeout: 300 * time.Millisecond}, b)

	t.Run("plain peer is dropped", func(t *testing.T) {
		c := dial(t, addr)
		_, _ = c.Write(keyboard.Press(0, keyboard.KeyA).BuildReport())
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, err := c.Read(make([]byte, 1))
		assert.Error(t, err)
		assert.Empty(t, b.Out.Reports())
	})

	t.Run("authenticated peer", func(t *testing.T) {
		key, err := auth.DeriveKey("pw")
		require.NoError(t, err)
		c, err := auth.SecureClient(dial(t, addr), key)
		require.NoError(t, err)
		_, err = c.Write(keyboard.Press(0, keyboard.KeyZ).BuildReport())
		require.NoError(t, err)
		require.True(t, th.Eventually(t, func() bool { return len(b.Out.Reports()) == 1 }, 2*time.Second))
		assert.Equal(t, keyboard.Press(0, keyboard.KeyZ), b.Out.Reports()[0])
	})
}

// slowSink holds the first peer-connected event for a while, as a descheduled
// handler would.
type slowSink struct {
	relay.Sink
	once    sync.Once
	entered chan struct{}
	hold    time.Duration
}

func (s *slowSink) PostPeerConnected(ctx context.Context, id string, w io.Writer) error {
	first := false
	s.once.Do(func() { first = true })
	if first {
		close(s.entered)
		time.Sleep(s.hold)
	}
	return s.Sink.PostPeerConnected(ctx, id, w)
}

func TestRelaySupersedeOrderWithSlowConnect(t *testing.T) {
	b := th.StartBridge(t, nil)
	sink := &slowSink{Sink: b.Session, entered: make(chan struct{}), hold: 150 * time.Millisecond}
	addr := startRelaySink(t, relay.Config{}, sink)

	first := dial(t, addr)
	select {
	case <-sink.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first peer never connected")
	}
	second := dial(t, addr)

	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := first.Read(make([]byte, 1))
	require.Error(t, err, "the first peer is replaced")

	// let the held event and the first peer's close reach the session
	time.Sleep(2 * sink.hold)
	assert.NotEmpty(t, peerOf(t, b), "the newest peer stays active")

	_, err = second.Write(keyboard.Press(0, keyboard.KeyB).BuildReport())
	require.NoError(t, err)
	require.True(t, th.Eventually(t, func() bool { return len(b.Out.Reports()) == 1 }, 2*time.Second),
		"frames from the newest peer reach the host")
	assert.Equal(t, keyboard.Press(0, keyboard.KeyB), b.Out.Reports()[0])
}
