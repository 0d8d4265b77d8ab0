// ABOUTME: Decoded-file backend that meters an audio file in real time
// ABOUTME: Paces decoding with a ticker, or plays it through oto while metering
package host

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// fileBlock is the pacing period when the file is not played back.
const fileBlock = 10 * time.Millisecond

type fileDriver struct {
	path    string
	monitor bool

	mu      sync.Mutex
	decoder pcmDecoder
	stop    chan struct{}
	done    chan struct{}
	player  *oto.Player
}

func newFileDriver(path string, monitor bool) *fileDriver {
	return &fileDriver{path: path, monitor: monitor}
}

func (d *fileDriver) open() (int, error) {
	decoder, err := openDecoder(d.path)
	if err != nil {
		return 0, err
	}
	d.decoder = decoder
	slog.Info("loaded audio file", "file", d.path,
		"sampleRate", decoder.SampleRate(), "channels", decoder.Channels())
	return decoder.Channels(), nil
}

func (d *fileDriver) start(feed func([]float32)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.monitor {
		return d.startMonitor(feed)
	}

	d.stop = make(chan struct{})
	d.done = make(chan struct{})

	frames := int(time.Duration(d.decoder.SampleRate()) * fileBlock / time.Second)
	buf := make([]float32, max(frames, 1)*d.decoder.Channels())

	go func() {
		defer close(d.done)
		ticker := time.NewTicker(fileBlock)
		defer ticker.Stop()

		for {
			select {
			case <-d.stop:
				return
			case <-ticker.C:
				if err := readLooping(d.decoder, buf); err != nil {
					slog.Error("file decode failed", "file", d.path, "err", err)
					return
				}
				feed(buf)
			}
		}
	}()
	return nil
}

// otoContext is created once; oto allows a single context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
	otoRate int
	otoChan int
)

func sharedOtoContext(rate, channels int) (*oto.Context, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   rate,
			ChannelCount: channels,
			Format:       oto.FormatFloat32LE,
		})
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoCtx, otoRate, otoChan = ctx, rate, channels
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoRate != rate || otoChan != channels {
		return nil, fmt.Errorf("audio output already open at %dHz/%dch", otoRate, otoChan)
	}
	return otoCtx, nil
}

// startMonitor lets the playback device pull decoded audio; every block it
// pulls is metered on the way.
func (d *fileDriver) startMonitor(feed func([]float32)) error {
	ctx, err := sharedOtoContext(d.decoder.SampleRate(), d.decoder.Channels())
	if err != nil {
		return err
	}

	d.player = ctx.NewPlayer(&tapReader{decoder: d.decoder, feed: feed})
	d.player.Play()
	slog.Info("monitoring audio file", "file", d.path)
	return nil
}

func (d *fileDriver) close() error {
	d.mu.Lock()
	stop, done, player := d.stop, d.done, d.player
	d.stop, d.player = nil, nil
	d.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	if player != nil {
		player.Pause()
		if err := player.Close(); err != nil {
			slog.Warn("player close failed", "err", err)
		}
	}
	if d.decoder != nil {
		return d.decoder.Close()
	}
	return nil
}

// tapReader decodes float32 frames for the player and passes a copy of
// each block to feed.
type tapReader struct {
	decoder pcmDecoder
	feed    func([]float32)
	samples []float32
	failed  error
}

func (r *tapReader) Read(p []byte) (int, error) {
	if r.failed != nil {
		return 0, r.failed
	}

	frameBytes := 4 * r.decoder.Channels()
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}

	n := frames * r.decoder.Channels()
	if cap(r.samples) < n {
		r.samples = make([]float32, n)
	}
	samples := r.samples[:n]

	if err := readLooping(r.decoder, samples); err != nil {
		slog.Error("file decode failed", "err", err)
		r.failed = err
		return 0, io.EOF
	}
	r.feed(samples)

	for i, s := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return n * 4, nil
}
