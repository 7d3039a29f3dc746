package testing

import (
	"testing"

	"github.com/Alia5/keybridge/internal/control"
	"github.com/Alia5/keybridge/internal/log"
)

// StartControlServer starts a control API on a loopback port. register wires
// the routes under test.
func StartControlServer(t *testing.T, cfg control.Config, register func(r *control.Router)) string {
	t.Helper()
	cfg.Addr = "127.0.0.1:0"
	srv, err := control.New(cfg, log.Discard())
	if err != nil {
		t.Fatalf("control server: %v", err)
	}
	register(srv.Router())
	if err := srv.Start(); err != nil {
		t.Fatalf("control server start: %v", err)
	}
	t.Cleanup(srv.Close)
	return srv.Addr().String()
}
