// Package testing holds helpers shared by the package tests: a recording
// HID sender, a canned remote service and a running bridge session.
package testing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Alia5/keybridge/device/keyboard"
	"github.com/Alia5/keybridge/internal/bridge"
	"github.com/Alia5/keybridge/internal/log"
	"github.com/Alia5/keybridge/internal/remote"
)

// Recorder is a bridge.Sender that remembers every report.
type Recorder struct {
	mu      sync.Mutex
	reports []keyboard.KeyReport
}

func (r *Recorder) SendReport(k keyboard.KeyReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, k)
	return nil
}

// Reports returns a copy of what was sent so far.
func (r *Recorder) Reports() []keyboard.KeyReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]keyboard.KeyReport(nil), r.reports...)
}

// FakeRemote answers PostRequest from Replies keyed by path. Unknown paths
// yield a null document.
type FakeRemote struct {
	mu      sync.Mutex
	Replies map[string]string
	calls   []string
}

func (f *FakeRemote) PostRequest(_ context.Context, path string, _ any) remote.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, path)
	return remote.ParseDocument([]byte(f.Replies[path]))
}

// Calls returns the paths requested so far.
func (f *FakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Bridge bundles a running session with its fakes.
type Bridge struct {
	Session *bridge.Session
	Out     *Recorder
	Remote  *FakeRemote
}

// StartBridge runs a session until the test ends. Feedback typing and delays
// are disabled.
func StartBridge(t *testing.T, mutate func(*bridge.Config)) *Bridge {
	t.Helper()
	cfg := bridge.DefaultConfig()
	cfg.Feedback = false
	if mutate != nil {
		mutate(&cfg)
	}
	b := &Bridge{Out: &Recorder{}, Remote: &FakeRemote{Replies: map[string]string{}}}
	b.Session = bridge.New(cfg, b.Out, b.Remote, log.Discard(), bridge.WithSleep(func(time.Duration) {}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Session.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return b
}

// Snapshot reads the session state on its own goroutine.
func (b *Bridge) Snapshot(t *testing.T) bridge.Snapshot {
	t.Helper()
	var snap bridge.Snapshot
	err := b.Session.Call(context.Background(), func(_ context.Context, s *bridge.Session) { snap = s.Snapshot() })
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return snap
}

// Eventually polls cond until it holds or the timeout expires.
func Eventually(t *testing.T, cond func() bool, timeout time.Duration) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
