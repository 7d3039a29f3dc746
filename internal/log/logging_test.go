package log

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestTraceLevelName(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: LevelTrace, ReplaceAttr: replaceLevel}))
	l.Log(context.Background(), LevelTrace, "frame")
	assert.Contains(t, buf.String(), "level=TRACE")
}

func TestSetupLoggerFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "keybridge.log")
	logger, closers, err := SetupLogger("debug", p)
	require.NoError(t, err)
	logger.Debug("hello", "k", 1)
	for _, c := range closers {
		require.NoError(t, c.Close())
	}
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=hello")
}

func TestSetupRaw(t *testing.T) {
	p := filepath.Join(t.TempDir(), "raw.log")
	raw, c := SetupRaw(Config{RawFile: p}, Discard())
	require.NotNil(t, c)
	raw.Log(true, []byte{0xab})
	require.NoError(t, c.Close())
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), "IN ")
	assert.Contains(t, string(data), " ab\n")

	_, c = SetupRaw(Config{Level: "info"}, Discard())
	assert.Nil(t, c)
}
