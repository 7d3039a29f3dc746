// Package remote implements the small HTTP/1.1 POST exchange the bridge uses
// to talk to the capture/LLM service. The request is written by hand and the
// response is parsed incrementally from a fixed-size buffer under two
// timeouts: one for the first byte and a shorter one between bytes.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"
)

var (
	ErrConnect    = errors.New("connect failed")
	ErrTimeout    = errors.New("no response before first-byte timeout")
	ErrBufferFull = errors.New("response does not fit the receive buffer")
)

// Config describes where the remote service lives and how long to wait for it.
type Config struct {
	Host             string        `help:"Remote service host" default:"127.0.0.1" env:"KEYBRIDGE_REMOTE_HOST"`
	Port             int           `help:"Remote service port" default:"5000" env:"KEYBRIDGE_REMOTE_PORT"`
	DialTimeout      time.Duration `help:"TCP connect timeout" default:"5s" env:"KEYBRIDGE_REMOTE_DIAL_TIMEOUT"`
	FirstByteTimeout time.Duration `help:"Wait at most this long for the first response byte" default:"5s" env:"KEYBRIDGE_REMOTE_FIRST_BYTE_TIMEOUT"`
	IdleTimeout      time.Duration `help:"Treat the response as complete after this much silence" default:"2s" env:"KEYBRIDGE_REMOTE_IDLE_TIMEOUT"`
	BufferSize       int           `help:"Receive buffer size in bytes" default:"16384" env:"KEYBRIDGE_REMOTE_BUFFER_SIZE"`
}

// DefaultConfig mirrors the flag defaults.
func DefaultConfig() Config {
	return Config{
		Host:             "127.0.0.1",
		Port:             5000,
		DialTimeout:      5 * time.Second,
		FirstByteTimeout: 5 * time.Second,
		IdleTimeout:      2 * time.Second,
		BufferSize:       16 * 1024,
	}
}

// EndReason tells how the response read loop stopped.
type EndReason int

const (
	EndContentLength EndReason = iota // Content-Length bytes of body received
	EndEOF                            // server closed the connection
	EndIdle                           // idle timeout after at least one byte
)

func (e EndReason) String() string {
	switch e {
	case EndContentLength:
		return "content-length"
	case EndEOF:
		return "eof"
	case EndIdle:
		return "idle"
	}
	return "unknown"
}

// Response is the raw result of one exchange.
type Response struct {
	StatusCode    int // 0 when no status line was seen
	ContentLength int // -1 when the header was absent
	HeadersFound  bool
	Body          []byte
	End           EndReason
}

// Client performs POST exchanges against a single host.
type Client struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	def := DefaultConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.FirstByteTimeout <= 0 {
		cfg.FirstByteTimeout = def.FirstByteTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	return &Client{cfg: cfg, logger: logger}
}

// Addr returns host:port of the remote service.
func (c *Client) Addr() string {
	return net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
}

// PostRequest serializes doc, posts it to path and returns the parsed reply.
// Every failure (connect, timeout, overflow, bad JSON) is logged and yields
// a null Document.
func (c *Client) PostRequest(ctx context.Context, path string, doc any) Document {
	body, err := json.Marshal(doc)
	if err != nil {
		c.logger.Error("encode request", "path", path, "error", err)
		return Document{}
	}
	res, err := c.Do(ctx, path, body)
	if err != nil {
		c.logger.Error("remote request failed", "path", path, "error", err)
		return Document{}
	}
	if res.StatusCode != 0 && (res.StatusCode < 200 || res.StatusCode > 299) {
		c.logger.Warn("remote returned non-success status", "path", path, "status", res.StatusCode)
	}
	d := ParseDocument(res.Body)
	if d.IsNull() {
		c.logger.Error("remote response is not valid JSON", "path", path, "bytes", len(res.Body), "end", res.End.String())
	}
	return d
}

// Do runs one exchange with a raw body.
func (c *Client) Do(ctx context.Context, path string, body []byte) (*Response, error) {
	addr := c.Addr()
	d := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, addr, err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c.logger.Debug("remote request", "addr", addr, "path", path, "bytes", len(body))

	_ = conn.SetWriteDeadline(time.Now().Add(c.cfg.FirstByteTimeout))
	if _, err := conn.Write(buildRequest(c.cfg.Host, path, body)); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("write request: %w", err)
	}

	ex := newExchange(c.cfg.BufferSize)
	deadline := time.Now().Add(c.cfg.FirstByteTimeout)
	gotFirst := false
	for {
		if ex.full() {
			return nil, fmt.Errorf("%w (%d bytes)", ErrBufferFull, len(ex.buf))
		}
		_ = conn.SetReadDeadline(deadline)
		n, rerr := conn.Read(ex.buf[ex.pos:])
		if n > 0 {
			gotFirst = true
			ex.advance(n)
			if ex.complete() {
				return ex.response(EndContentLength), nil
			}
			deadline = time.Now().Add(c.cfg.IdleTimeout)
		}
		if rerr == nil {
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var ne net.Error
		if errors.As(rerr, &ne) && ne.Timeout() {
			if !gotFirst {
				return nil, ErrTimeout
			}
			c.logger.Debug("remote response idle", "path", path, "received", ex.pos, "content_length", ex.contentLength)
			return ex.response(EndIdle), nil
		}
		if errors.Is(rerr, io.EOF) {
			return ex.response(EndEOF), nil
		}
		return nil, fmt.Errorf("read response: %w", rerr)
	}
}

func buildRequest(host, path string, body []byte) []byte {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "POST %s HTTP/1.1\r\n", path)
	fmt.Fprintf(&b, "Host: %s\r\n", host)
	b.WriteString("Content-Type: application/json\r\n")
	fmt.Fprintf(&b, "Content-Length: %d\r\n", len(body))
	b.WriteString("Connection: close\r\n\r\n")
	b.Write(body)
	return b.Bytes()
}

