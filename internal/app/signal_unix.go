//go:build !windows

// ABOUTME: Signal sets for Unix-like systems
// ABOUTME: Shutdown on INT, TERM and HUP; resize on WINCH
package app

import (
	"os"
	"syscall"
)

// ShutdownSignals returns the signals that end the meter.
func ShutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}
}

// ResizeSignals returns the signals that invalidate the screen layout.
func ResizeSignals() []os.Signal {
	return []os.Signal{syscall.SIGWINCH}
}
