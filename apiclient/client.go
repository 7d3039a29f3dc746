// Package apiclient is the Go client for the KeyBridge control API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Alia5/keybridge/apitypes"
)

// Client wraps a Transport with typed calls.
type Client struct{ transport *Transport }

// New constructs a client for the control API at addr (host:port).
func New(addr string) *Client { return &Client{transport: NewTransport(addr)} }

// NewWithPassword constructs a client that authenticates with password.
func NewWithPassword(addr, password string) *Client {
	return &Client{transport: NewTransportWithPassword(addr, password)}
}

func NewWithConfig(addr string, cfg *Config) *Client {
	return &Client{transport: NewTransportWithConfig(addr, cfg)}
}

// WithTransport constructs a Client around t, mostly for tests.
func WithTransport(t *Transport) *Client { return &Client{transport: t} }

func (c *Client) Ping() (*apitypes.PingResponse, error) {
	return c.PingCtx(context.Background())
}

func (c *Client) PingCtx(ctx context.Context) (*apitypes.PingResponse, error) {
	return do[apitypes.PingResponse](ctx, c, "ping", nil, nil)
}

// Status returns the bridge session state.
func (c *Client) Status() (*apitypes.StatusResponse, error) {
	return c.StatusCtx(context.Background())
}

func (c *Client) StatusCtx(ctx context.Context) (*apitypes.StatusResponse, error) {
	return do[apitypes.StatusResponse](ctx, c, "status", nil, nil)
}

// SetMessage replaces the pending message played in key-press mode. The
// text may use the \n, \t, \\ and \" escapes.
func (c *Client) SetMessage(text string) (*apitypes.MessageSetResponse, error) {
	return c.SetMessageCtx(context.Background(), text)
}

func (c *Client) SetMessageCtx(ctx context.Context, text string) (*apitypes.MessageSetResponse, error) {
	return do[apitypes.MessageSetResponse](ctx, c, "message/set", apitypes.MessageSetRequest{Text: text}, nil)
}

// CancelMessage stops playback at the next trigger key.
func (c *Client) CancelMessage() (*apitypes.MessageResponse, error) {
	return c.CancelMessageCtx(context.Background())
}

func (c *Client) CancelMessageCtx(ctx context.Context) (*apitypes.MessageResponse, error) {
	return do[apitypes.MessageResponse](ctx, c, "message/cancel", nil, nil)
}

// ClearMessage drops the pending message.
func (c *Client) ClearMessage() (*apitypes.MessageResponse, error) {
	return c.ClearMessageCtx(context.Background())
}

func (c *Client) ClearMessageCtx(ctx context.Context) (*apitypes.MessageResponse, error) {
	return do[apitypes.MessageResponse](ctx, c, "message/clear", nil, nil)
}

// SetCharter replaces the charter buffer.
func (c *Client) SetCharter(text string) (*apitypes.CharterSetResponse, error) {
	return c.SetCharterCtx(context.Background(), text)
}

func (c *Client) SetCharterCtx(ctx context.Context, text string) (*apitypes.CharterSetResponse, error) {
	return do[apitypes.CharterSetResponse](ctx, c, "charter/set", apitypes.CharterSetRequest{Text: text}, nil)
}

// Command runs a named bridge command such as "capture" or "send".
func (c *Client) Command(name string) (*apitypes.CommandResponse, error) {
	return c.CommandCtx(context.Background(), name)
}

func (c *Client) CommandCtx(ctx context.Context, name string) (*apitypes.CommandResponse, error) {
	return do[apitypes.CommandResponse](ctx, c, "command/{name}", nil, map[string]string{"name": name})
}

func do[T any](ctx context.Context, c *Client, path string, payload any, params map[string]string) (*T, error) {
	raw, err := c.transport.DoCtx(ctx, path, payload, params)
	if err != nil {
		return nil, err
	}
	return parse[T](raw)
}

func parse[T any](data string) (*T, error) {
	if data == "" {
		return nil, errors.New("empty response")
	}
	var problem apitypes.ApiError
	if err := json.Unmarshal([]byte(data), &problem); err == nil && (problem.Status != 0 || problem.Title != "") {
		return nil, &problem
	}
	var out T
	if err := json.NewDecoder(bytes.NewReader([]byte(data))).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return &out, nil
}
