// ABOUTME: Tests for once-only host teardown
// ABOUTME: Checks disconnect-then-close ordering, concurrency and the timeout
package host

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type stubPort struct {
	h     *stubHost
	name  string
	peers []string
}

func (p *stubPort) Name() string          { return p.name }
func (p *stubPort) Connections() []string { return p.peers }
func (p *stubPort) Disconnect(peer string) error {
	p.h.mu.Lock()
	defer p.h.mu.Unlock()
	p.h.calls = append(p.h.calls, "disconnect "+peer)
	return nil
}

type stubHost struct {
	mu        sync.Mutex
	calls     []string
	ports     []Port
	closeWait time.Duration
}

func (h *stubHost) Open(string, int) error        { return nil }
func (h *stubHost) ClientName() string            { return "meter" }
func (h *stubHost) Activate(ProcessFunc) error    { return nil }
func (h *stubHost) Connect(string, int) error     { return nil }
func (h *stubHost) Ports() []Port                 { return h.ports }
func (h *stubHost) Close() error {
	time.Sleep(h.closeWait)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, "close")
	return nil
}

func newStubHost() *stubHost {
	h := &stubHost{}
	h.ports = []Port{
		&stubPort{h: h, name: "meter:in_1", peers: []string{"system:capture_1", "system:capture_2"}},
		&stubPort{h: h, name: "meter:in_2", peers: []string{"system:capture_3"}},
	}
	return h
}

func TestReleaseOrder(t *testing.T) {
	h := newStubHost()
	if err := NewReleaser(h, 0).Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	want := []string{
		"disconnect system:capture_1",
		"disconnect system:capture_2",
		"disconnect system:capture_3",
		"close",
	}
	if len(h.calls) != len(want) {
		t.Fatalf("calls %v, want %v", h.calls, want)
	}
	for i := range want {
		if h.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, h.calls[i], want[i])
		}
	}
}

func TestReleaseOnceConcurrent(t *testing.T) {
	h := newStubHost()
	r := NewReleaser(h, 0)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Release()
		}()
	}
	wg.Wait()

	closes := 0
	for _, c := range h.calls {
		if c == "close" {
			closes++
		}
	}
	if closes != 1 {
		t.Errorf("host closed %d times, want 1", closes)
	}
}

func TestReleaseTimeout(t *testing.T) {
	h := newStubHost()
	h.closeWait = 200 * time.Millisecond

	r := NewReleaser(h, 20*time.Millisecond)
	if err := r.Release(); !errors.Is(err, ErrReleaseTimeout) {
		t.Errorf("expected ErrReleaseTimeout, got %v", err)
	}
	// the result sticks
	if err := r.Release(); !errors.Is(err, ErrReleaseTimeout) {
		t.Errorf("second Release = %v", err)
	}
}
