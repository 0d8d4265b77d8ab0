// ABOUTME: Periodic tick source for the meter loop
// ABOUTME: Posts ticks into a one-slot queue and reports ticks the loop missed
package app

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Resonate-Protocol/peakmeter/pkg/meter"
	"go.uber.org/atomic"
)

// ErrInterval is returned for a tick interval outside (0, 1s).
var ErrInterval = errors.New("tick interval out of range")

// Tick is one timer expiry.
type Tick struct {
	At time.Time
	// Missed is set when the expiry found a render still in progress, or
	// when an earlier expiry was dropped because the queue was full.
	Missed bool
}

// TickSource delivers ticks to the meter loop.
type TickSource interface {
	C() <-chan Tick
	// Reset re-arms the source with a new period.
	Reset(d time.Duration) error
	Stop()
}

// TimerSource is a TickSource driven by a time.Ticker goroutine.
type TimerSource struct {
	busy  *atomic.Bool
	ticks chan Tick
	reset chan time.Duration
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// NewTimerSource starts ticking every interval. busy is read at each expiry
// to decide whether the tick was missed.
func NewTimerSource(interval time.Duration, busy *atomic.Bool) (*TimerSource, error) {
	if err := checkInterval(interval); err != nil {
		return nil, err
	}
	if busy == nil {
		busy = atomic.NewBool(false)
	}

	s := &TimerSource{
		busy:  busy,
		ticks: make(chan Tick, 1),
		reset: make(chan time.Duration),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go s.run(interval)
	return s, nil
}

func (s *TimerSource) run(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pending := false
	for {
		select {
		case <-s.stop:
			return
		case d := <-s.reset:
			ticker.Reset(d)
		case now := <-ticker.C:
			tick := Tick{At: now, Missed: pending || s.busy.Load()}
			select {
			case s.ticks <- tick:
				pending = false
			default:
				pending = true
			}
		}
	}
}

// C returns the tick channel.
func (s *TimerSource) C() <-chan Tick { return s.ticks }

// Reset changes the period. It fails with ErrInterval for a period outside
// (0, 1s).
func (s *TimerSource) Reset(d time.Duration) error {
	if err := checkInterval(d); err != nil {
		return err
	}
	select {
	case s.reset <- d:
		return nil
	case <-s.done:
		return fmt.Errorf("tick source stopped")
	}
}

// Stop ends the ticker goroutine and waits for it.
func (s *TimerSource) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}

func checkInterval(d time.Duration) error {
	if d <= 0 || d > meter.MaxInterval {
		return fmt.Errorf("%w: %v", ErrInterval, d)
	}
	return nil
}
