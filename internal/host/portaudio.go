//go:build portaudio

// ABOUTME: PortAudio capture backend
// ABOUTME: Opens the default or a named input device with a float32 callback
package host

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const portaudioChannels = 2

// NewPortAudio returns a capture host backed by PortAudio.
func NewPortAudio(device string, sampleRate int) (Host, error) {
	return newCaptureHost("portaudio", &portaudioDriver{deviceName: device, sampleRate: sampleRate}), nil
}

type portaudioDriver struct {
	deviceName string
	sampleRate int

	mu          sync.Mutex
	device      *portaudio.DeviceInfo
	channels    int
	stream      *portaudio.Stream
	initialized bool
}

func (d *portaudioDriver) open() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := portaudio.Initialize(); err != nil {
		return 0, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	d.initialized = true

	if d.deviceName == "" {
		d.channels = portaudioChannels
		return d.channels, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		d.terminate()
		return 0, fmt.Errorf("failed to list devices: %w", err)
	}
	for _, dev := range devices {
		if dev.MaxInputChannels > 0 && strings.EqualFold(dev.Name, d.deviceName) {
			d.device = dev
			break
		}
	}
	if d.device == nil {
		d.terminate()
		return 0, fmt.Errorf("input device %q not found", d.deviceName)
	}
	d.channels = min(d.device.MaxInputChannels, portaudioChannels)
	return d.channels, nil
}

func (d *portaudioDriver) start(feed func([]float32)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	callback := func(in []float32) {
		feed(in)
	}

	var stream *portaudio.Stream
	var err error
	if d.device == nil {
		stream, err = portaudio.OpenDefaultStream(d.channels, 0, float64(d.sampleRate), 0, callback)
	} else {
		params := portaudio.LowLatencyParameters(d.device, nil)
		params.Input.Channels = d.channels
		params.SampleRate = float64(d.sampleRate)
		stream, err = portaudio.OpenStream(params, callback)
	}
	if err != nil {
		return fmt.Errorf("failed to open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start stream: %w", err)
	}
	d.stream = stream

	slog.Info("capture started", "backend", "portaudio", "sampleRate", d.sampleRate,
		"channels", d.channels)
	return nil
}

func (d *portaudioDriver) close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	if d.stream != nil {
		if err := d.stream.Stop(); err != nil {
			firstErr = err
		}
		if err := d.stream.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		d.stream = nil
	}
	if err := d.terminate(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// terminate must hold d.mu.
func (d *portaudioDriver) terminate() error {
	if !d.initialized {
		return nil
	}
	d.initialized = false
	return portaudio.Terminate()
}
