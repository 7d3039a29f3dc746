package bridge_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/Alia5/keybridge/device/keyboard"
	"github.com/Alia5/keybridge/internal/bridge"
	"github.com/Alia5/keybridge/internal/log"
	"github.com/Alia5/keybridge/internal/remote"
	"github.com/Alia5/keybridge/internal/status"
)

type recorder struct {
	reports []keyboard.KeyReport
}

func (r *recorder) SendReport(k keyboard.KeyReport) error {
	r.reports = append(r.reports, k)
	return nil
}

func (r *recorder) reset() { r.reports = nil }

// nonEmpty drops release reports so tests can compare the keys typed.
func (r *recorder) nonEmpty() []keyboard.KeyReport {
	var out []keyboard.KeyReport
	for _, k := range r.reports {
		if !k.IsEmpty() {
			out = append(out, k)
		}
	}
	return out
}

type remoteCall struct {
	path string
	doc  any
}

type fakeRemote struct {
	calls   []remoteCall
	replies map[string]string
}

func (f *fakeRemote) PostRequest(_ context.Context, path string, doc any) remote.Document {
	f.calls = append(f.calls, remoteCall{path: path, doc: doc})
	return remote.ParseDocument([]byte(f.replies[path]))
}

type indicator struct{ seen []status.Status }

func (i *indicator) Set(s status.Status) { i.seen = append(i.seen, s) }

func (i *indicator) last() status.Status {
	if len(i.seen) == 0 {
		return status.Idle
	}
	return i.seen[len(i.seen)-1]
}

type harness struct {
	s   *bridge.Session
	out *recorder
	rem *fakeRemote
	ind *indicator
}

func newHarness(t *testing.T, mutate func(*bridge.Config)) *harness {
	t.Helper()
	return newHarnessLogger(t, mutate, log.Discard())
}

func newHarnessLogger(t *testing.T, mutate func(*bridge.Config), logger *slog.Logger) *harness {
	t.Helper()
	cfg := bridge.DefaultConfig()
	cfg.Feedback = false
	if mutate != nil {
		mutate(&cfg)
	}
	h := &harness{
		out: &recorder{},
		rem: &fakeRemote{replies: map[string]string{}},
		ind: &indicator{},
	}
	h.s = bridge.New(cfg, h.out, h.rem, logger,
		bridge.WithIndicator(h.ind),
		bridge.WithSleep(func(time.Duration) {}),
	)
	return h
}

// tap presses and releases a key with optional modifiers.
func (h *harness) tap(mod uint8, code uint8) {
	h.s.HandleLocal(context.Background(), keyboard.Press(mod, code))
	h.s.HandleLocal(context.Background(), keyboard.Release())
}

// chord holds the helper key and taps code.
func (h *harness) chord(code uint8) {
	helper := uint8(keyboard.KeyF18)
	h.s.HandleLocal(context.Background(), keyboard.Press(0, helper))
	h.s.HandleLocal(context.Background(), keyboard.Press(0, helper, code))
	h.s.HandleLocal(context.Background(), keyboard.Press(0, helper))
	h.s.HandleLocal(context.Background(), keyboard.Release())
}

func (h *harness) typeText(text string) {
	for i := 0; i < len(text); i++ {
		r, ok := keyboard.CharReport(text[i])
		if !ok {
			continue
		}
		h.tap(r.Modifiers, r.Keys[0])
	}
}

func frame(r keyboard.KeyReport) []byte { return r.BuildReport() }
