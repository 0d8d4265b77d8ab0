//go:build !portaudio

// ABOUTME: PortAudio stub when the library is not built in
// ABOUTME: Reports the backend as unsupported
package host

import "fmt"

// NewPortAudio reports that PortAudio support is not compiled in.
func NewPortAudio(device string, sampleRate int) (Host, error) {
	return nil, fmt.Errorf("%w: portaudio (build with -tags portaudio)", ErrNotSupported)
}
