//go:build jack

// ABOUTME: JACK backend registering the meter as a JACK client
// ABOUTME: One input port per channel, processed on the JACK real-time thread
package host

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"unsafe"

	"github.com/xthexder/go-jack"
)

// errAlreadyConnected is the errno jack_connect returns for an existing
// connection.
const errAlreadyConnected = 17

type jackHost struct {
	serverName string

	mu     sync.Mutex
	client *jack.Client
	ports  []*jack.Port
	closed bool
}

// NewJack returns a host that connects to the named JACK server, or the
// default one when serverName is empty. The server is never started.
func NewJack(serverName string) (Host, error) {
	return &jackHost{serverName: serverName}, nil
}

func (h *jackHost) Open(clientName string, channels int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.serverName != "" {
		os.Setenv("JACK_DEFAULT_SERVER", h.serverName)
	}

	client, status := jack.ClientOpen(clientName, jack.NoStartServer)
	if client == nil {
		return fmt.Errorf("%w: failed to start jack client: %v", ErrHostUnavailable, jack.StrError(status))
	}
	if status != 0 {
		// renames and server starts are reported here on success
		slog.Debug("jack client opened with status", "status", status, "name", client.GetName())
	}

	ports, err := registerInputs(channels, func(name string) (*jack.Port, bool) {
		port := client.PortRegister(name, jack.DEFAULT_AUDIO_TYPE, uint64(jack.PortIsInput), 0)
		return port, port != nil
	})
	if err != nil {
		client.Close()
		return err
	}
	h.client = client
	h.ports = ports

	slog.Debug("registered as jack client", "client", client.GetName(), "ports", channels)
	return nil
}

func (h *jackHost) ClientName() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client == nil {
		return ""
	}
	return h.client.GetName()
}

func (h *jackHost) Activate(process ProcessFunc) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.client == nil {
		return fmt.Errorf("%w: client not open", ErrHostUnavailable)
	}

	ports := h.ports
	if code := h.client.SetProcessCallback(func(nframes uint32) int {
		for ch, port := range ports {
			buf := port.GetBuffer(nframes)
			if len(buf) == 0 {
				continue
			}
			process(ch, unsafe.Slice((*float32)(unsafe.Pointer(&buf[0])), len(buf)))
		}
		return 0
	}); code != 0 {
		return fmt.Errorf("%w: cannot set process callback: %v", ErrHostUnavailable, jack.StrError(code))
	}

	if code := h.client.Activate(); code != 0 {
		return fmt.Errorf("%w: cannot activate client: %v", ErrHostUnavailable, jack.StrError(code))
	}
	return nil
}

func (h *jackHost) Connect(source string, channel int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.client == nil || channel < 0 || channel >= len(h.ports) {
		return fmt.Errorf("%w: channel %d", ErrConnect, channel)
	}
	if h.client.GetPortByName(source) == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPort, source)
	}

	dest := h.ports[channel].GetName()
	code := h.client.Connect(source, dest)
	if code != 0 && code != errAlreadyConnected {
		return fmt.Errorf("%w: %s to %s: %v", ErrConnect, source, dest, jack.StrError(code))
	}
	return nil
}

func (h *jackHost) Ports() []Port {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	ports := make([]Port, len(h.ports))
	for i, p := range h.ports {
		ports[i] = &jackPort{host: h, port: p}
	}
	return ports
}

func (h *jackHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || h.client == nil {
		h.closed = true
		return nil
	}
	h.closed = true
	if code := h.client.Close(); code != 0 {
		return fmt.Errorf("failed to close jack client: %v", jack.StrError(code))
	}
	return nil
}

type jackPort struct {
	host *jackHost
	port *jack.Port
}

func (p *jackPort) Name() string { return p.port.GetName() }

func (p *jackPort) Connections() []string {
	return p.port.GetConnections()
}

func (p *jackPort) Disconnect(peer string) error {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()

	if p.host.closed {
		return nil
	}
	if code := p.host.client.Disconnect(peer, p.port.GetName()); code != 0 {
		return fmt.Errorf("cannot disconnect %s: %v", peer, jack.StrError(code))
	}
	return nil
}
