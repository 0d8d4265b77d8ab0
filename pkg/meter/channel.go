// ABOUTME: Per-channel meter state
// ABOUTME: Owns one peak register and one decay renderer per input channel
package meter

import (
	"errors"
	"fmt"
)

// MaxChannels is the largest number of channels a meter can show.
const MaxChannels = 16

// ErrChannelCount is returned when a channel count is outside [1, MaxChannels].
var ErrChannelCount = errors.New("invalid channel count")

// Channel is the state for one metered input.
type Channel struct {
	Index int
	Peak  PeakRegister
	Decay *DecayRenderer
}

// NewChannels creates n channels indexed 0..n-1.
func NewChannels(n int, g Glyphs) ([]*Channel, error) {
	if n < 1 || n > MaxChannels {
		return nil, fmt.Errorf("%w: %d (must be 1-%d)", ErrChannelCount, n, MaxChannels)
	}

	channels := make([]*Channel, n)
	for i := range channels {
		channels[i] = &Channel{
			Index: i,
			Decay: NewDecayRenderer(g),
		}
	}
	return channels, nil
}
