// ABOUTME: Once-only teardown of an audio host session
// ABOUTME: Disconnects every peer of every input port, then closes the client
package host

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultReleaseTimeout bounds how long teardown may block on the host.
const DefaultReleaseTimeout = 2 * time.Second

// ErrReleaseTimeout is returned when the host did not finish closing in time.
var ErrReleaseTimeout = errors.New("audio host release timed out")

// Releaser tears a host down exactly once, from whichever path gets there
// first: normal return, a signal, a fatal error or a panic.
type Releaser struct {
	host    Host
	timeout time.Duration
	once    sync.Once
	err     error
}

// NewReleaser returns a Releaser for h. A zero timeout means
// DefaultReleaseTimeout.
func NewReleaser(h Host, timeout time.Duration) *Releaser {
	if timeout <= 0 {
		timeout = DefaultReleaseTimeout
	}
	return &Releaser{host: h, timeout: timeout}
}

// Release disconnects and closes the host. Later calls return the first
// call's result without touching the host.
func (r *Releaser) Release() error {
	r.once.Do(func() {
		done := make(chan error, 1)
		go func() {
			done <- teardown(r.host)
		}()

		select {
		case r.err = <-done:
		case <-time.After(r.timeout):
			r.err = ErrReleaseTimeout
		}
		if r.err != nil {
			slog.Warn("audio host release failed", "err", r.err)
		} else {
			slog.Debug("audio host released")
		}
	})
	return r.err
}

func teardown(h Host) error {
	var errs []error
	for _, port := range h.Ports() {
		for _, peer := range port.Connections() {
			if err := port.Disconnect(peer); err != nil {
				errs = append(errs, fmt.Errorf("disconnect %s from %s: %w", peer, port.Name(), err))
			}
		}
	}
	if err := h.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
