// ABOUTME: Tests for the timer tick source
// ABOUTME: Covers interval validation, busy detection and tick coalescing
package app

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/atomic"
)

func recvTick(t *testing.T, s TickSource) Tick {
	t.Helper()
	select {
	case tick := <-s.C():
		return tick
	case <-time.After(2 * time.Second):
		t.Fatal("no tick received")
		return Tick{}
	}
}

func TestTimerSourceInterval(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Millisecond, time.Second, 2 * time.Second} {
		if _, err := NewTimerSource(d, nil); !errors.Is(err, ErrInterval) {
			t.Errorf("NewTimerSource(%v) = %v, want ErrInterval", d, err)
		}
	}

	s, err := NewTimerSource(999_999*time.Microsecond, nil)
	if err != nil {
		t.Fatalf("max interval rejected: %v", err)
	}
	defer s.Stop()

	if err := s.Reset(0); !errors.Is(err, ErrInterval) {
		t.Errorf("Reset(0) = %v, want ErrInterval", err)
	}
	if err := s.Reset(10 * time.Millisecond); err != nil {
		t.Errorf("Reset failed: %v", err)
	}
}

func TestTimerSourceTicks(t *testing.T) {
	s, err := NewTimerSource(5*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	tick := recvTick(t, s)
	if tick.Missed {
		t.Error("first tick reported missed while idle")
	}
	if tick.At.IsZero() {
		t.Error("tick has no timestamp")
	}
}

func TestTimerSourceBusy(t *testing.T) {
	busy := atomic.NewBool(true)
	s, err := NewTimerSource(5*time.Millisecond, busy)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	if tick := recvTick(t, s); !tick.Missed {
		t.Error("tick during render not reported missed")
	}
}

func TestTimerSourceCoalesces(t *testing.T) {
	s, err := NewTimerSource(2*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	// let several expiries pile up behind the first
	time.Sleep(50 * time.Millisecond)

	if tick := recvTick(t, s); tick.Missed {
		t.Error("queued tick should not be missed")
	}
	if tick := recvTick(t, s); !tick.Missed {
		t.Error("tick after dropped expiries should be missed")
	}
}

func TestTimerSourceStop(t *testing.T) {
	s, err := NewTimerSource(5*time.Millisecond, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.Stop()
	s.Stop()

	if err := s.Reset(10 * time.Millisecond); err == nil {
		t.Error("Reset after Stop should fail")
	}
}
