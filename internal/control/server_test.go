package control_test

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keybridge/internal/apierror"
	"github.com/Alia5/keybridge/internal/control"
	th "github.com/Alia5/keybridge/internal/testing"
)

func exchange(t *testing.T, addr, request string) string {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer c.Close()
	_ = c.SetDeadline(time.Now().Add(2 * time.Second))
	_, err = c.Write([]byte(request))
	require.NoError(t, err)
	out, _ := io.ReadAll(bufio.NewReader(c))
	return strings.TrimSuffix(string(out), "\n")
}

func TestServerDispatch(t *testing.T) {
	addr := th.StartControlServer(t, control.Config{RequestTimeout: 500 * time.Millisecond}, func(r *control.Router) {
		r.Register("echo", func(req *control.Request, res *control.Response, _ *slog.Logger) error {
			res.JSON = `"` + req.Payload + `"`
			return nil
		})
		r.Register("fail/{kind}", func(req *control.Request, _ *control.Response, _ *slog.Logger) error {
			if req.Params["kind"] == "conflict" {
				return apierror.ErrConflict("busy")
			}
			return errors.New("boom")
		})
	})

	tests := []struct {
		name    string
		request string
		want    string
	}{
		{"payload after first space", "echo a b\x00", `"a b"`},
		{"payload after newline", "echo\nx\x00", `"x"`},
		{"no payload", "echo\x00", `""`},
		{"unknown path", "nope\x00", `{"status":404,"title":"Not Found","detail":"unknown path: nope"}`},
		{"empty request", "\x00", `{"status":400,"title":"Bad Request","detail":"empty request"}`},
		{"empty path", " x\x00", `{"status":400,"title":"Bad Request","detail":"empty path"}`},
		{"api error", "fail/conflict\x00", `{"status":409,"title":"Conflict","detail":"busy"}`},
		{"plain error", "fail/other\x00", `{"status":500,"title":"Internal Server Error","detail":"boom"}`},
		{"missing terminator", "echo", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exchange(t, addr, tt.request))
		})
	}
}

func TestServerRequiresPassword(t *testing.T) {
	addr := th.StartControlServer(t, control.Config{Password: "pw", RequestTimeout: 300 * time.Millisecond}, func(r *control.Router) {
		r.Register("ping", func(_ *control.Request, res *control.Response, _ *slog.Logger) error {
			res.JSON = "{}"
			return nil
		})
	})
	assert.Contains(t, exchange(t, addr, "ping\x00"), `"status":401`)
}

func TestServerClose(t *testing.T) {
	srv, err := control.New(control.Config{Addr: "127.0.0.1:0"}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	require.NoError(t, srv.Start())
	addr := srv.Addr().String()
	srv.Close()

	_, err = net.DialTimeout("tcp", addr, 200*time.Millisecond)
	assert.Error(t, err)
}
