// ABOUTME: The meter loop: render, wait for a tick, adapt the rate, repeat
// ABOUTME: Owns decay state and the rate controller; producers only touch peak registers
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Resonate-Protocol/peakmeter/internal/host"
	"github.com/Resonate-Protocol/peakmeter/pkg/meter"
	"go.uber.org/atomic"
)

// Control is a request from an interactive display.
type Control int

const (
	// ControlResetHold drops every held peak marker.
	ControlResetHold Control = iota + 1
)

// Sink receives a copy of every frame. Publish must not block.
type Sink interface {
	Publish(f *Frame)
}

// LoopConfig wires a Loop.
type LoopConfig struct {
	Channels []*meter.Channel
	// Ports are index-aligned with Channels; may be nil.
	Ports    []host.Port
	Width    int
	RefLevel float64
	Numeric  bool
	Rate     int
	Display  Display
	Sinks    []Sink
	// Ticks defaults to a TimerSource at the controller's interval.
	Ticks TickSource
	// Interrupts carries resize signals; the wait is re-entered after each.
	Interrupts <-chan os.Signal
	Controls   <-chan Control
	// AutoWidth, when set, re-measures the meter width after a resize.
	AutoWidth func() int
	Now       func() time.Time
}

// Loop runs the meter until its context is cancelled.
type Loop struct {
	channels   []*meter.Channel
	ports      []host.Port
	bias       float64
	width      int
	numeric    bool
	rate       *meter.RateController
	display    Display
	sinks      []Sink
	ticks      TickSource
	interrupts <-chan os.Signal
	controls   <-chan Control
	autoWidth  func() int
	now        func() time.Time

	busy        *atomic.Bool
	seq         uint64
	frame       Frame
	scaleLabels string
	scaleTicks  string
	drawFailed  bool
}

// NewLoop validates cfg and builds a Loop.
func NewLoop(cfg LoopConfig) (*Loop, error) {
	if len(cfg.Channels) == 0 {
		return nil, fmt.Errorf("%w: no channels", meter.ErrChannelCount)
	}
	if cfg.Display == nil {
		return nil, errors.New("no display")
	}
	if !cfg.Numeric && cfg.Width < 1 {
		return nil, fmt.Errorf("invalid meter width %d", cfg.Width)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	l := &Loop{
		channels:   cfg.Channels,
		ports:      cfg.Ports,
		bias:       meter.Bias(cfg.RefLevel),
		width:      cfg.Width,
		numeric:    cfg.Numeric,
		rate:       meter.NewRateController(cfg.Rate),
		display:    cfg.Display,
		sinks:      cfg.Sinks,
		ticks:      cfg.Ticks,
		interrupts: cfg.Interrupts,
		controls:   cfg.Controls,
		autoWidth:  cfg.AutoWidth,
		now:        cfg.Now,
		busy:       atomic.NewBool(false),
	}
	l.renderScale()
	return l, nil
}

// Busy is set while a frame is being rendered.
func (l *Loop) Busy() *atomic.Bool { return l.busy }

// Rate returns the rate controller. Only safe to read once Run has returned.
func (l *Loop) Rate() *meter.RateController { return l.rate }

// Run renders a frame, then waits for the next tick, until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	ticks := l.ticks
	if ticks == nil {
		ts, err := NewTimerSource(l.rate.Interval(), l.busy)
		if err != nil {
			return err
		}
		defer ts.Stop()
		ticks = ts
	}

	slog.Debug("meter running", "channels", len(l.channels), "rate", l.rate.Target(),
		"width", l.width, "numeric", l.numeric)

	for {
		l.cycle()

		done, err := l.wait(ctx, ticks)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// wait blocks until a tick, absorbing interrupts and controls on the way.
func (l *Loop) wait(ctx context.Context, ticks TickSource) (bool, error) {
	for {
		select {
		case <-ctx.Done():
			return true, nil
		case sig := <-l.interrupts:
			slog.Debug("wait interrupted", "signal", sig)
			l.resize()
		case c := <-l.controls:
			l.control(c)
		case tick := <-ticks.C():
			return false, l.onTick(tick, ticks)
		}
	}
}

func (l *Loop) onTick(tick Tick, ticks TickSource) error {
	before := l.rate.Rate()
	interval, rearm := l.rate.OnTick(tick.Missed)

	if rate := l.rate.Rate(); rate != before {
		slog.Debug("update rate changed", "rate", rate, "target", l.rate.Target(),
			"missed", tick.Missed, "decayTicks", l.rate.DecayTicks())
	}
	if !rearm {
		return nil
	}
	if err := ticks.Reset(interval); err != nil {
		return fmt.Errorf("cannot re-arm timer: %w", err)
	}
	return nil
}

func (l *Loop) resize() {
	if inv, ok := l.display.(Invalidator); ok {
		inv.Invalidate()
	}
	if l.autoWidth == nil || l.numeric {
		return
	}
	if w := l.autoWidth(); w > 0 && w != l.width {
		slog.Debug("meter width changed", "from", l.width, "to", w)
		l.width = w
		l.renderScale()
	}
}

func (l *Loop) control(c Control) {
	switch c {
	case ControlResetHold:
		for _, ch := range l.channels {
			ch.Decay.Reset()
		}
	default:
		slog.Warn("unknown control", "control", int(c))
	}
}

func (l *Loop) renderScale() {
	if l.numeric {
		l.scaleLabels, l.scaleTicks = "", ""
		return
	}
	l.scaleLabels, l.scaleTicks = meter.RenderScale(l.width)
}

// cycle takes every channel's peak and renders one frame.
func (l *Loop) cycle() {
	l.busy.Store(true)
	defer l.busy.Store(false)

	l.seq++
	f := &l.frame
	f.Seq = l.seq
	f.At = l.now()
	f.Rate = l.rate.Rate()
	f.Target = l.rate.Target()
	f.MeterWidth = l.width
	f.Numeric = l.numeric
	f.ScaleLabels = l.scaleLabels
	f.ScaleTicks = l.scaleTicks
	f.Channels = f.Channels[:0]

	decayTicks := l.rate.DecayTicks()
	for i, ch := range l.channels {
		peak := ch.Peak.TakeAndReset()
		cf := ChannelFrame{
			Index: ch.Index,
			Peak:  peak,
			DB:    meter.ToDB(peak, l.bias),
		}
		if i < len(l.ports) && l.ports[i] != nil {
			cf.Port = l.ports[i].Name()
			cf.Connections = l.ports[i].Connections()
		}
		if !l.numeric {
			cf.Width = meter.IECScale(cf.DB, l.width)
			cf.Held = ch.Decay.Update(cf.Width, decayTicks)
			cf.Bar = ch.Decay.Render(cf.Width, l.width)
		}
		f.Channels = append(f.Channels, cf)
	}

	if err := l.display.Draw(f); err != nil {
		if !l.drawFailed {
			slog.Warn("display write failed", "err", err)
		}
		l.drawFailed = true
	} else {
		l.drawFailed = false
	}

	for _, s := range l.sinks {
		s.Publish(f.Clone())
	}
}
