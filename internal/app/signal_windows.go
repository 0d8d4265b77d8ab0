//go:build windows

// ABOUTME: Signal sets for Windows
// ABOUTME: Only interrupt is delivered; there is no resize signal
package app

import "os"

// ShutdownSignals returns the signals that end the meter.
func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// ResizeSignals returns nil; console resizes are not signalled on Windows.
func ResizeSignals() []os.Signal {
	return nil
}
