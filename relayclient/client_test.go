package relayclient_test

import (
	"bufio"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keybridge/device/keyboard"
	"github.com/Alia5/keybridge/internal/auth"
	"github.com/Alia5/keybridge/relayclient"
)

func pipe(t *testing.T) (*relayclient.Client, net.Conn) {
	t.Helper()
	a, b := net.Pipe()
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return relayclient.NewFromConn(a), b
}

func readN(t *testing.T, r io.Reader, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	_, err := io.ReadFull(r, buf)
	require.NoError(t, err)
	return buf
}

func TestSendFrames(t *testing.T) {
	c, srv := pipe(t)

	go func() {
		_ = c.SendReport(keyboard.Press(keyboard.ModLeftShift, keyboard.KeyA))
		_ = c.SendSentinel(keyboard.SentinelSuccess)
	}()
	assert.Equal(t, []byte{keyboard.ModLeftShift, 0, keyboard.KeyA, 0, 0, 0, 0, 0}, readN(t, srv, 8))
	assert.Equal(t, []byte{0x22, 0, 12, 12, 12, 12, 12, 12}, readN(t, srv, 8))
}

func TestTypeText(t *testing.T) {
	c, srv := pipe(t)
	go func() { _ = c.TypeText(context.Background(), "Hi", 0) }()

	want := keyboard.TypeString("Hi")
	for _, r := range want {
		assert.Equal(t, r.BuildReport(), readN(t, srv, 8))
	}
}

func TestUploadCharter(t *testing.T) {
	c, srv := pipe(t)
	go func() { _ = c.UploadCharter("rules") }()

	assert.Equal(t, keyboard.SentinelCharterBegin.Report().BuildReport(), readN(t, srv, 8))
	text, err := bufio.NewReader(srv).ReadString(0)
	require.NoError(t, err)
	assert.Equal(t, "rules\x00", text)

	assert.ErrorIs(t, c.UploadCharter("a\x00b"), relayclient.ErrNulInCharter)
}

func TestListen(t *testing.T) {
	c, srv := pipe(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan keyboard.KeyReport, 4)
	done := make(chan error, 1)
	go func() { done <- c.Listen(ctx, func(r keyboard.KeyReport) { got <- r }) }()

	_, err := srv.Write(keyboard.Press(0, keyboard.KeyQ).BuildReport())
	require.NoError(t, err)
	assert.Equal(t, keyboard.Press(0, keyboard.KeyQ), <-got)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return")
	}
}

func TestDialWithPassword(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	key, err := auth.DeriveKey("pw")
	require.NoError(t, err)

	frames := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		secure, err := auth.SecureServer(conn, bufio.NewReader(conn), key)
		if err != nil {
			return
		}
		buf := make([]byte, 8)
		if _, err := io.ReadFull(secure, buf); err == nil {
			frames <- buf
		}
	}()

	c, err := relayclient.Dial(context.Background(), ln.Addr().String(), &relayclient.Config{Password: "pw", DialTimeout: time.Second})
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.SendReport(keyboard.Press(0, keyboard.KeyB)))
	assert.Equal(t, keyboard.Press(0, keyboard.KeyB).BuildReport(), <-frames)
}
