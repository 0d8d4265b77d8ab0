// ABOUTME: miniaudio capture backend via malgo
// ABOUTME: Opens the default or a named capture device in float32 format
package host

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
)

// malgoChannels is requested from the capture device.
const malgoChannels = 2

type malgoDriver struct {
	deviceName string
	sampleRate int

	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	deviceID *malgo.DeviceID
	device   *malgo.Device
	samples  []float32
}

func newMalgoDriver(deviceName string, sampleRate int) *malgoDriver {
	return &malgoDriver{deviceName: deviceName, sampleRate: sampleRate}
}

func (d *malgoDriver) open() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	d.malgoCtx = ctx

	if d.deviceName != "" {
		infos, err := ctx.Devices(malgo.Capture)
		if err != nil {
			d.freeContext()
			return 0, fmt.Errorf("failed to list capture devices: %w", err)
		}
		for _, info := range infos {
			if strings.EqualFold(info.Name(), d.deviceName) {
				id := info.ID
				d.deviceID = &id
				break
			}
		}
		if d.deviceID == nil {
			d.freeContext()
			return 0, fmt.Errorf("capture device %q not found", d.deviceName)
		}
	}

	return malgoChannels, nil
}

func (d *malgoDriver) start(feed func([]float32)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = malgoChannels
	deviceConfig.SampleRate = uint32(d.sampleRate)
	deviceConfig.Alsa.NoMMap = 1
	if d.deviceID != nil {
		deviceConfig.Capture.DeviceID = d.deviceID.Pointer()
	}

	onSamples := func(pOutputSample, pInputSamples []byte, frameCount uint32) {
		feed(d.convert(pInputSamples, frameCount))
	}

	device, err := malgo.InitDevice(d.malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onSamples,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start device: %w", err)
	}
	d.device = device

	slog.Info("capture started", "backend", "malgo", "sampleRate", d.sampleRate,
		"channels", malgoChannels)
	return nil
}

// convert reinterprets the callback's bytes as float32 samples. Runs on the
// device thread, which is the only user of d.samples.
func (d *malgoDriver) convert(in []byte, frameCount uint32) []float32 {
	n := min(int(frameCount)*malgoChannels, len(in)/4)
	if cap(d.samples) < n {
		d.samples = make([]float32, n)
	}
	samples := d.samples[:n]
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(in[i*4:]))
	}
	return samples
}

func (d *malgoDriver) close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device != nil {
		if err := d.device.Stop(); err != nil {
			slog.Warn("device stop error", "err", err)
		}
		d.device.Uninit()
		d.device = nil
	}
	d.freeContext()
	return nil
}

// freeContext must hold d.mu.
func (d *malgoDriver) freeContext() {
	if d.malgoCtx == nil {
		return
	}
	if err := d.malgoCtx.Uninit(); err != nil {
		slog.Warn("malgo context uninit error", "err", err)
	}
	d.malgoCtx.Free()
	d.malgoCtx = nil
}
