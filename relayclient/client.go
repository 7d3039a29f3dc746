// Package relayclient is the peer side of the relay channel: it sends report
// frames, sentinels and charter uploads, and reads mirrored keyboard reports.
package relayclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/Alia5/keybridge/device/keyboard"
	"github.com/Alia5/keybridge/internal/auth"
)

// ErrNulInCharter is returned for charter text containing a NUL byte, which
// would end the upload early.
var ErrNulInCharter = errors.New("charter text contains NUL")

type Config struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	Password     string
}

func defaultConfig() Config {
	return Config{DialTimeout: 3 * time.Second, WriteTimeout: 2 * time.Second}
}

// Client is one relay connection. Writes are serialized; reads belong to a
// single reader.
type Client struct {
	conn net.Conn
	cfg  Config
	wmu  sync.Mutex
}

// Dial connects to the relay at addr. A nil cfg uses the defaults.
func Dial(ctx context.Context, addr string, cfg *Config) (*Client, error) {
	c := defaultConfig()
	if cfg != nil {
		c = *cfg
	}
	d := &net.Dialer{Timeout: c.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	if c.Password != "" {
		key, err := auth.DeriveKey(c.Password)
		if err != nil {
			conn.Close()
			return nil, err
		}
		secure, err := auth.SecureClient(conn, key)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("relay handshake: %w", err)
		}
		conn = secure
	}
	return &Client{conn: conn, cfg: c}, nil
}

// NewFromConn wraps an established connection.
func NewFromConn(conn net.Conn) *Client {
	return &Client{conn: conn, cfg: defaultConfig()}
}

func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) write(p []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.cfg.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	_, err := c.conn.Write(p)
	return err
}

// SendReport sends one report frame for the bridge to forward.
func (c *Client) SendReport(r keyboard.KeyReport) error {
	return c.write(r.BuildReport())
}

// SendSentinel sends a sentinel frame.
func (c *Client) SendSentinel(s keyboard.Sentinel) error {
	return c.write(s.Report().BuildReport())
}

// TypeText types text on the host as press/release pairs, waiting delay
// between frames. Characters without a key are skipped.
func (c *Client) TypeText(ctx context.Context, text string, delay time.Duration) error {
	for _, r := range keyboard.TypeString(text) {
		if err := c.SendReport(r); err != nil {
			return err
		}
		if delay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			_ = c.SendReport(keyboard.Release())
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil
}

// UploadCharter replaces the bridge's charter buffer with text.
func (c *Client) UploadCharter(text string) error {
	if bytes.IndexByte([]byte(text), 0) >= 0 {
		return ErrNulInCharter
	}
	msg := keyboard.SentinelCharterBegin.Report().BuildReport()
	msg = append(msg, text...)
	msg = append(msg, 0)
	return c.write(msg)
}

// ReadReport blocks for the next mirrored keyboard report.
func (c *Client) ReadReport() (keyboard.KeyReport, error) {
	buf := make([]byte, keyboard.ReportSize)
	var r keyboard.KeyReport
	if _, err := io.ReadFull(c.conn, buf); err != nil {
		return r, err
	}
	err := r.UnmarshalBinary(buf)
	return r, err
}

// Listen calls fn for every mirrored report until ctx is done or the
// connection fails. A closed connection after cancellation is not an error.
func (c *Client) Listen(ctx context.Context, fn func(keyboard.KeyReport)) error {
	stop := context.AfterFunc(ctx, func() { _ = c.conn.Close() })
	defer stop()
	for {
		r, err := c.ReadReport()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		fn(r)
	}
}
