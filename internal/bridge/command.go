package bridge

import (
	"context"
	"strings"

	"github.com/Alia5/keybridge/device/keyboard"
	"github.com/Alia5/keybridge/internal/remote"
	"github.com/Alia5/keybridge/internal/status"
)

// Command names understood by Dispatch.
const (
	CommandCapture = "capture"
	CommandSend    = "send"
	CommandSet     = "set"
)

// Remote service endpoints.
const (
	PathCapture = "/capture"
	PathSend    = "/send_request"
)

// CommandBuffer collects the keys typed in Command mode. It is append-only
// until Reset; a zero scan code marks the first unused slot.
type CommandBuffer struct {
	entries []keyboard.KeyInfo
	n       int
}

func NewCommandBuffer(capacity int) *CommandBuffer {
	if capacity <= 0 {
		capacity = 512
	}
	return &CommandBuffer{entries: make([]keyboard.KeyInfo, capacity)}
}

// Append stores k. It returns false when the buffer is full.
func (b *CommandBuffer) Append(k keyboard.KeyInfo) bool {
	if b.n >= len(b.entries) {
		return false
	}
	b.entries[b.n] = k
	b.n++
	return true
}

// Len returns the number of buffered keys.
func (b *CommandBuffer) Len() int { return b.n }

// Cap returns the buffer capacity.
func (b *CommandBuffer) Cap() int { return len(b.entries) }

// Reset zeroes every slot.
func (b *CommandBuffer) Reset() {
	clear(b.entries)
	b.n = 0
}

// String maps the buffered keys to ASCII, using '?' for keys without a
// character, and stops at the first empty slot.
func (b *CommandBuffer) String() string {
	var sb strings.Builder
	for _, k := range b.entries {
		if k.ScanCode == 0 {
			break
		}
		sb.WriteByte(k.Char())
	}
	return sb.String()
}

// appendKey looks code up under the report's shift state and buffers it.
func (s *Session) appendKey(code uint8, shifted bool) {
	k, ok := keyboard.LookupCode(code, shifted)
	if !ok {
		s.logger.Warn("command key not in keymap, dropped", "code", keyboard.Describe(code))
		return
	}
	if !s.cmd.Append(k) {
		s.logger.Warn("command buffer full, key dropped", "capacity", s.cmd.Cap(), "key", k.Description)
		return
	}
	s.logger.Debug("command key", "key", k.Description, "buffer", s.cmd.String())
}

// submitCommand dispatches the buffer contents and resets it.
func (s *Session) submitCommand(ctx context.Context) {
	name := s.cmd.String()
	s.cmd.Reset()
	s.Dispatch(ctx, name)
}

// Dispatch runs the named command. Unknown names are logged and discarded.
func (s *Session) Dispatch(ctx context.Context, name string) bool {
	switch name {
	case CommandCapture:
		s.capture(ctx)
	case CommandSend:
		s.sendRequest(ctx)
	case CommandSet:
		s.logger.Info("set command received; nothing to configure")
	default:
		s.logger.Warn("unknown command", "command", name)
		s.status.Set(status.Error)
		return false
	}
	return true
}

func (s *Session) capture(ctx context.Context) {
	s.logger.Info("capture requested")
	s.acknowledge("capture")
	s.status.Set(status.Busy)

	doc := s.remote.PostRequest(ctx, PathCapture, map[string]string{"": ""})
	if err := doc.Validate(remote.CaptureSchema); err != nil {
		s.logger.Error("capture failed", "error", err)
		s.status.Set(status.Error)
		s.acknowledge("Error")
		return
	}
	s.logger.Info("capture done", "message", doc.Get("message").String())
	s.status.Set(status.Success)
	s.acknowledge("Success")
}

func (s *Session) sendRequest(ctx context.Context) {
	s.logger.Info("send requested")
	s.acknowledge("send_request")
	s.status.Set(status.Busy)

	doc := s.remote.PostRequest(ctx, PathSend, map[string]string{"message": s.cfg.Prompt})
	if doc.IsNull() {
		s.status.Set(status.Error)
		s.acknowledge("Error")
		return
	}
	s.status.Set(status.Success)
	s.acknowledge("Success")

	if err := doc.Validate(remote.SendSchema); err != nil {
		s.logger.Warn("message not available", "error", err)
		return
	}
	content := doc.Get("response.choices.0.message.content").String()
	n := s.SetMessage(content)
	s.logger.Info("message stored", "chars", len(content), "reports", n)
}
