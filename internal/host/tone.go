// ABOUTME: Test tone backend for demos and tests
// ABOUTME: Generates a sine wave at a fixed level, paced in real time
package host

import (
	"math"
	"sync"
	"time"
)

// toneBlock is the pacing period of the generator.
const toneBlock = 10 * time.Millisecond

type toneDriver struct {
	frequency  float64
	amplitude  float64
	sampleRate int
	channels   int

	mu          sync.Mutex
	sampleIndex uint64
	stop        chan struct{}
	done        chan struct{}
}

// newToneDriver generates freq Hz at level dBFS on every channel.
func newToneDriver(freq, level float64, sampleRate, channels int) *toneDriver {
	if freq <= 0 {
		freq = 440.0
	}
	return &toneDriver{
		frequency:  freq,
		amplitude:  math.Pow(10, level/20),
		sampleRate: sampleRate,
		channels:   channels,
	}
}

func (d *toneDriver) open() (int, error) {
	return d.channels, nil
}

func (d *toneDriver) start(feed func([]float32)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stop = make(chan struct{})
	d.done = make(chan struct{})

	frames := int(time.Duration(d.sampleRate) * toneBlock / time.Second)
	buf := make([]float32, frames*d.channels)

	go func() {
		defer close(d.done)
		ticker := time.NewTicker(toneBlock)
		defer ticker.Stop()

		for {
			select {
			case <-d.stop:
				return
			case <-ticker.C:
				d.generate(buf)
				feed(buf)
			}
		}
	}()
	return nil
}

// generate fills buf with the next interleaved frames.
func (d *toneDriver) generate(buf []float32) {
	frames := len(buf) / d.channels
	for i := range frames {
		t := float64(d.sampleIndex+uint64(i)) / float64(d.sampleRate)
		sample := float32(d.amplitude * math.Sin(2*math.Pi*d.frequency*t))
		for ch := range d.channels {
			buf[i*d.channels+ch] = sample
		}
	}
	d.sampleIndex += uint64(frames)
}

func (d *toneDriver) close() error {
	d.mu.Lock()
	stop, done := d.stop, d.done
	d.stop = nil
	d.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}
