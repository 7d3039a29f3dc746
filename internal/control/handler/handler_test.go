package handler_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keybridge/apiclient"
	"github.com/Alia5/keybridge/internal/bridge"
	"github.com/Alia5/keybridge/internal/control"
	"github.com/Alia5/keybridge/internal/control/handler"
	th "github.com/Alia5/keybridge/internal/testing"
)

func startAPI(t *testing.T) (*th.Bridge, *apiclient.Transport) {
	t.Helper()
	b := th.StartBridge(t, nil)
	addr := th.StartControlServer(t, control.Config{RequestTimeout: time.Second}, func(r *control.Router) {
		handler.Register(r, b.Session, "test")
	})
	return b, apiclient.NewTransport(addr)
}

func TestHandlers(t *testing.T) {
	tests := []struct {
		name             string
		setup            func(t *testing.T, b *th.Bridge)
		path             string
		payload          any
		params           map[string]string
		expectedResponse string
	}{
		{
			name:             "ping",
			path:             "ping",
			expectedResponse: `{"server":"keybridge","version":"test"}`,
		},
		{
			name:             "message set raw payload",
			path:             "message/set",
			payload:          "Hi",
			expectedResponse: `{"reports":2}`,
		},
		{
			name:             "message set json payload with escape",
			path:             "message/set",
			payload:          map[string]string{"text": `ab\n`},
			expectedResponse: `{"reports":3}`,
		},
		{
			name:             "message set empty",
			path:             "message/set",
			payload:          `{"text":""}`,
			expectedResponse: `{"status":400,"title":"Bad Request","detail":"message text is empty"}`,
		},
		{
			name: "message clear",
			setup: func(t *testing.T, b *th.Bridge) {
				var err error
				require.NoError(t, b.Session.Call(context.Background(), func(_ context.Context, s *bridge.Session) {
					s.SetMessage("abc")
					err = s.ToggleKeyPress()
				}))
				require.NoError(t, err)
			},
			path:             "message/clear",
			expectedResponse: `{"mode":"normal","messageRemaining":0}`,
		},
		{
			name:             "charter set",
			path:             "charter/set",
			payload:          "abc",
			expectedResponse: `{"chars":3}`,
		},
		{
			name: "command capture",
			setup: func(t *testing.T, b *th.Bridge) {
				require.NoError(t, b.Session.Call(context.Background(), func(context.Context, *bridge.Session) {
					b.Remote.Replies[bridge.PathCapture] = `{"message":"hello"}`
				}))
			},
			path:             "command/{name}",
			params:           map[string]string{"name": "capture"},
			expectedResponse: `{"command":"capture","status":"success"}`,
		},
		{
			name:             "command unknown",
			path:             "command/{name}",
			params:           map[string]string{"name": "nope"},
			expectedResponse: `{"status":404,"title":"Not Found","detail":"unknown command: nope"}`,
		},
		{
			name:             "command names are case sensitive",
			path:             "command/{name}",
			params:           map[string]string{"name": "Capture"},
			expectedResponse: `{"status":404,"title":"Not Found","detail":"unknown command: Capture"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, c := startAPI(t)
			if tt.setup != nil {
				tt.setup(t, b)
			}
			line, err := c.Do(tt.path, tt.payload, tt.params)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expectedResponse, line)
		})
	}
}

func TestStatusHandler(t *testing.T) {
	b, c := startAPI(t)
	require.NoError(t, b.Session.Call(context.Background(), func(_ context.Context, s *bridge.Session) {
		s.SetMessage("xy")
		s.SetCharterText("notes")
	}))

	line, err := c.Do("status", nil, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"mode":"normal","charter":false,"status":"idle","command":"",
		"message":"xy","messageRemaining":2,"charterText":"notes",
		"peerFrames":0,"charterUploadBytes":0
	}`, line)
}

type stoppedSession struct{}

func (stoppedSession) Call(ctx context.Context, _ func(context.Context, *bridge.Session)) error {
	return context.Canceled
}

func TestHandlerSessionGone(t *testing.T) {
	addr := th.StartControlServer(t, control.Config{RequestTimeout: time.Second}, func(r *control.Router) {
		handler.Register(r, stoppedSession{}, "test")
	})
	line, err := apiclient.NewTransport(addr).Do("status", nil, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":503,"title":"Service Unavailable","detail":"bridge session not running: context canceled"}`, line)
}
