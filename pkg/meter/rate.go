// ABOUTME: Adaptive display refresh rate controller
// ABOUTME: Additive increase/decrease of the update rate driven by missed ticks
package meter

import (
	"math"
	"time"
)

const (
	// HoldTime is how long the peak marker is held, whatever the refresh rate.
	HoldTime = 1600 * time.Millisecond

	// MaxInterval caps a single timer period just under one second.
	MaxInterval = 999_999 * time.Microsecond
)

// RateController adjusts the refresh rate by one step per tick: down when the
// previous render missed its tick, up towards the target when it kept up.
type RateController struct {
	rate       int
	target     int
	interval   time.Duration
	decayTicks int
}

// NewRateController starts at target updates per second. Targets below 1 are raised to 1.
func NewRateController(target int) *RateController {
	if target < 1 {
		target = 1
	}
	rc := &RateController{rate: target, target: target}
	rc.interval = IntervalFor(target)
	rc.decayTicks = DecayTicksFor(target)
	return rc
}

// OnTick records whether the previous render missed this tick. It returns the
// timer interval and whether the timer must be re-armed with it.
//
// Only a miss changes the interval; recovering steps raise the rate (and the
// decay threshold) while the timer keeps its current period.
func (rc *RateController) OnTick(missed bool) (time.Duration, bool) {
	if missed {
		if rc.rate > 1 {
			rc.rate--
			rc.decayTicks = DecayTicksFor(rc.rate)
		}
		rc.interval = IntervalFor(rc.rate)
		return rc.interval, true
	}

	if rc.rate < rc.target {
		rc.rate++
		rc.decayTicks = DecayTicksFor(rc.rate)
	}
	return rc.interval, false
}

// Rate returns the current updates per second.
func (rc *RateController) Rate() int { return rc.rate }

// Target returns the configured updates per second.
func (rc *RateController) Target() int { return rc.target }

// Interval returns the period the timer is armed with.
func (rc *RateController) Interval() time.Duration { return rc.interval }

// DecayTicks returns the peak-hold threshold in ticks at the current rate.
func (rc *RateController) DecayTicks() int { return rc.decayTicks }

// IntervalFor returns the timer period for rate, capped at MaxInterval.
func IntervalFor(rate int) time.Duration {
	if rate < 1 {
		rate = 1
	}
	return min(time.Second/time.Duration(rate), MaxInterval)
}

// DecayTicksFor returns round(HoldTime * rate) in ticks.
func DecayTicksFor(rate int) int {
	return int(math.Round(HoldTime.Seconds() * float64(rate)))
}
