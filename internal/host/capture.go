// ABOUTME: Host implementation shared by the capture-style backends
// ABOUTME: Exposes device channels as source ports and routes them to meter channels
package host

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/atomic"
)

// driver is a device producing interleaved float32 frames.
type driver interface {
	// open prepares the device and returns its channel count.
	open() (channels int, err error)
	// start begins calling feed with interleaved blocks from the device's
	// own goroutine or callback thread.
	start(feed func(interleaved []float32)) error
	close() error
}

const sourcePrefix = "capture_"

// routeTable maps each device channel to the meter channels it feeds.
type routeTable struct {
	dest [][]int
}

type captureHost struct {
	backend string
	drv     driver

	mu       sync.Mutex
	name     string
	channels int
	sources  int
	conns    [][]string // per meter channel, source port names
	opened   bool
	active   bool
	closed   bool

	routes  atomic.Pointer[routeTable]
	process ProcessFunc
	scratch [][]float32 // per device channel, owned by feed
}

func newCaptureHost(backend string, drv driver) *captureHost {
	return &captureHost{backend: backend, drv: drv}
}

func (h *captureHost) Open(clientName string, channels int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opened {
		return fmt.Errorf("%w: %s already open", ErrHostUnavailable, h.backend)
	}
	if channels < 1 {
		return fmt.Errorf("%w: %d channels", ErrPortRegistration, channels)
	}

	sources, err := h.drv.open()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrHostUnavailable, h.backend, err)
	}
	if sources < 1 {
		h.drv.close()
		return fmt.Errorf("%w: %s reports no channels", ErrHostUnavailable, h.backend)
	}

	h.name = clientName
	h.channels = channels
	h.sources = sources
	h.conns = make([][]string, channels)
	h.scratch = make([][]float32, sources)
	h.opened = true

	slog.Debug("audio host opened", "backend", h.backend, "client", clientName,
		"inputs", channels, "sources", sources)
	return nil
}

func (h *captureHost) ClientName() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.name
}

func (h *captureHost) Activate(process ProcessFunc) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.opened || h.closed {
		return fmt.Errorf("%w: %s not open", ErrHostUnavailable, h.backend)
	}
	if h.active {
		return nil
	}

	h.process = process
	if err := h.drv.start(h.feed); err != nil {
		return fmt.Errorf("%w: cannot activate %s: %v", ErrHostUnavailable, h.backend, err)
	}
	h.active = true
	return nil
}

func (h *captureHost) Connect(source string, channel int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.opened || h.closed {
		return fmt.Errorf("%w: %s not open", ErrConnect, h.backend)
	}
	if channel < 0 || channel >= h.channels {
		return fmt.Errorf("%w: channel %d out of range", ErrConnect, channel)
	}

	idx, ok := h.sourceIndex(source)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPort, source)
	}

	name := h.sourceName(idx)
	if slices.Contains(h.conns[channel], name) {
		return nil
	}
	h.conns[channel] = append(h.conns[channel], name)
	h.rebuildRoutes()
	return nil
}

func (h *captureHost) Ports() []Port {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.opened || h.closed {
		return nil
	}
	ports := make([]Port, h.channels)
	for ch := range h.channels {
		ports[ch] = &capturePort{host: h, channel: ch}
	}
	return ports
}

// DefaultSources returns every device channel, in order.
func (h *captureHost) DefaultSources() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	names := make([]string, h.sources)
	for i := range names {
		names[i] = h.sourceName(i)
	}
	return names
}

func (h *captureHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || !h.opened {
		h.closed = true
		return nil
	}
	h.closed = true
	h.routes.Store(nil)
	return h.drv.close()
}

// feed runs on the device thread.
func (h *captureHost) feed(interleaved []float32) {
	table := h.routes.Load()
	if table == nil {
		return
	}

	n := len(table.dest)
	frames := len(interleaved) / n
	for src, dests := range table.dest {
		if len(dests) == 0 {
			continue
		}
		block := h.scratch[src]
		if cap(block) < frames {
			block = make([]float32, frames)
			h.scratch[src] = block
		}
		block = block[:frames]
		for i := range block {
			block[i] = interleaved[i*n+src]
		}
		for _, ch := range dests {
			h.process(ch, block)
		}
	}
}

// rebuildRoutes publishes the routing table. Must hold h.mu.
func (h *captureHost) rebuildRoutes() {
	table := &routeTable{dest: make([][]int, h.sources)}
	for ch, names := range h.conns {
		for _, name := range names {
			if idx, ok := h.sourceIndex(name); ok {
				table.dest[idx] = append(table.dest[idx], ch)
			}
		}
	}
	h.routes.Store(table)
}

func (h *captureHost) sourceName(idx int) string {
	return PortName(h.backend, sourcePrefix+strconv.Itoa(idx+1))
}

// sourceIndex resolves "capture_N", "<backend>:capture_N" or
// "system:capture_N" to a device channel.
func (h *captureHost) sourceIndex(source string) (int, bool) {
	port := source
	if client, rest, ok := strings.Cut(source, ":"); ok {
		if client != h.backend && client != "system" {
			return 0, false
		}
		port = rest
	}

	num, ok := strings.CutPrefix(port, sourcePrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 || n > h.sources {
		return 0, false
	}
	return n - 1, true
}

func (h *captureHost) disconnect(channel int, peer string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	idx, ok := h.sourceIndex(peer)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPort, peer)
	}
	name := h.sourceName(idx)
	conns := h.conns[channel]
	i := slices.Index(conns, name)
	if i < 0 {
		return nil
	}
	h.conns[channel] = slices.Delete(conns, i, i+1)
	h.rebuildRoutes()
	return nil
}

type capturePort struct {
	host    *captureHost
	channel int
}

func (p *capturePort) Name() string {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	return PortName(p.host.name, InputPortName(p.channel, p.host.channels))
}

func (p *capturePort) Connections() []string {
	p.host.mu.Lock()
	defer p.host.mu.Unlock()
	if p.host.closed {
		return nil
	}
	return slices.Clone(p.host.conns[p.channel])
}

func (p *capturePort) Disconnect(peer string) error {
	return p.host.disconnect(p.channel, peer)
}
