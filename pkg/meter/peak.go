// ABOUTME: Lock-free rolling peak register
// ABOUTME: Shared between a real-time audio producer and the display loop
package meter

import (
	"math"

	"go.uber.org/atomic"
)

// PeakRegister holds the largest sample magnitude seen since the last read.
// Record and TakeAndReset may run concurrently from different goroutines;
// neither blocks nor allocates.
type PeakRegister struct {
	peak atomic.Float32
}

// Record raises the register to |sample| if it is larger than the current peak.
func (p *PeakRegister) Record(sample float32) {
	p.raise(abs32(sample))
}

// RecordBlock reduces a block of samples to its peak magnitude and records it.
// This is the call made once per audio block from a host callback.
func (p *PeakRegister) RecordBlock(block []float32) {
	var m float32
	for _, s := range block {
		if a := abs32(s); a > m {
			m = a
		}
	}
	p.raise(m)
}

// TakeAndReset returns the current peak and resets the register to zero.
func (p *PeakRegister) TakeAndReset() float32 {
	return p.peak.Swap(0)
}

// Load returns the current peak without resetting it.
func (p *PeakRegister) Load() float32 {
	return p.peak.Load()
}

func (p *PeakRegister) raise(mag float32) {
	// NaN never compares greater, so it is dropped here
	for {
		old := p.peak.Load()
		if !(mag > old) {
			return
		}
		if p.peak.CompareAndSwap(old, mag) {
			return
		}
	}
}

func abs32(v float32) float32 {
	return math.Float32frombits(math.Float32bits(v) &^ (1 << 31))
}
