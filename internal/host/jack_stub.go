//go:build !jack

// ABOUTME: JACK stub when the library is not built in
// ABOUTME: Reports the backend as unsupported
package host

import "fmt"

// NewJack reports that JACK support is not compiled in.
func NewJack(serverName string) (Host, error) {
	return nil, fmt.Errorf("%w: jack (build with -tags jack)", ErrNotSupported)
}
