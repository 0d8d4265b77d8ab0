// ABOUTME: Audio host abstraction for the meter's input ports
// ABOUTME: Defines Host and Port, sentinel errors and backend selection
package host

import (
	"errors"
	"fmt"
	"strings"
)

// ProcessFunc receives one block of samples for one meter channel. It runs
// on the host's real-time context and must not block.
type ProcessFunc func(channel int, block []float32)

// Port is one of the meter's registered input ports.
type Port interface {
	// Name returns the full port name, "client:port".
	Name() string
	// Connections returns the names of the ports feeding this one.
	Connections() []string
	// Disconnect removes the connection from peer.
	Disconnect(peer string) error
}

// Host is an audio server session owning the meter's input ports.
type Host interface {
	// Open registers as clientName with one input port per channel.
	Open(clientName string, channels int) error
	// ClientName returns the name the host actually assigned.
	ClientName() string
	// Activate starts delivering audio to process.
	Activate(process ProcessFunc) error
	// Connect routes source into the given meter channel.
	Connect(source string, channel int) error
	// Ports returns the registered input ports in channel order.
	Ports() []Port
	// Close ends the session. Ports are gone afterwards.
	Close() error
}

// DefaultSourcer is implemented by hosts that can suggest sources to connect
// when none were named.
type DefaultSourcer interface {
	DefaultSources() []string
}

var (
	ErrHostUnavailable  = errors.New("audio host unavailable")
	ErrPortRegistration = errors.New("cannot register input port")
	ErrUnknownPort      = errors.New("no such source port")
	ErrConnect          = errors.New("cannot connect port")
	ErrNotSupported     = errors.New("audio host not supported in this build")
)

// DefaultClientName is the client name requested from the audio host.
const DefaultClientName = "meter"

// Config selects and parameterizes a backend.
type Config struct {
	Backend    string
	ServerName string // JACK server
	Device     string // malgo, portaudio
	File       string
	Monitor    bool
	ToneFreq   float64
	ToneLevel  float64
	SampleRate int // capture rate for malgo, portaudio and tone
}

// DefaultSampleRate is used when Config.SampleRate is zero.
const DefaultSampleRate = 48000

// New creates the backend named by cfg.Backend.
func New(cfg Config) (Host, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}

	switch strings.ToLower(cfg.Backend) {
	case "jack", "":
		return NewJack(cfg.ServerName)
	case "malgo":
		return newCaptureHost("malgo", newMalgoDriver(cfg.Device, cfg.SampleRate)), nil
	case "portaudio":
		return NewPortAudio(cfg.Device, cfg.SampleRate)
	case "file":
		return newCaptureHost("file", newFileDriver(cfg.File, cfg.Monitor)), nil
	case "tone":
		return newCaptureHost("tone", newToneDriver(cfg.ToneFreq, cfg.ToneLevel, cfg.SampleRate, 2)), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrNotSupported, cfg.Backend)
	}
}

// PortName joins a client and a port name.
func PortName(client, port string) string {
	return client + ":" + port
}

// InputPortName names the meter's input port for a channel: "in" for a
// single channel, "in_1".."in_N" otherwise.
func InputPortName(channel, channels int) string {
	if channels == 1 {
		return "in"
	}
	return fmt.Sprintf("in_%d", channel+1)
}

// registerInputs registers one input port per channel, named by
// InputPortName, stopping at the first failure.
func registerInputs[P any](channels int, register func(name string) (P, bool)) ([]P, error) {
	ports := make([]P, 0, channels)
	for ch := range channels {
		name := InputPortName(ch, channels)
		port, ok := register(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrPortRegistration, name)
		}
		ports = append(ports, port)
	}
	return ports, nil
}
