// ABOUTME: Terminal displays for meter frames
// ABOUTME: Positioned ANSI bars with scale headers, or plain numeric dB lines
package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/Resonate-Protocol/peakmeter/internal/term"
	"github.com/Resonate-Protocol/peakmeter/pkg/meter"
)

// Display shows one frame per loop cycle. Draw runs on the loop goroutine.
type Display interface {
	Draw(f *Frame) error
}

// Invalidator is implemented by displays that must repaint from scratch
// after the terminal changes size.
type Invalidator interface {
	Invalidate()
}

// TerminalDisplay draws every channel at fixed rows using absolute cursor
// positioning.
type TerminalDisplay struct {
	w      *term.Writer
	layout Layout
	dirty  bool
}

// NewTerminalDisplay draws below the status lines counted in layout.
func NewTerminalDisplay(out io.Writer, layout Layout) *TerminalDisplay {
	return &TerminalDisplay{w: term.NewWriter(out), layout: layout}
}

// Draw repaints all channel blocks.
func (d *TerminalDisplay) Draw(f *Frame) error {
	if d.dirty {
		// the clear wipes the status lines, so the meter moves to the top
		d.w.Clear()
		d.layout.StatusLines = 0
		d.dirty = false
	}

	for _, ch := range f.Channels {
		d.w.WriteLine(d.layout.Row(ch.Index, LineConnection), ConnectionLine(ch))
		d.w.WriteLine(d.layout.Row(ch.Index, LineLabels), f.ScaleLabels)
		d.w.WriteLine(d.layout.Row(ch.Index, LineTicks), f.ScaleTicks)
		d.w.WriteLine(d.layout.Row(ch.Index, LineBar), ch.Bar)
	}
	return d.w.Flush()
}

// Invalidate schedules a full repaint on the next Draw.
func (d *TerminalDisplay) Invalidate() {
	d.dirty = true
}

// ConnectionLine describes what feeds a channel.
func ConnectionLine(ch ChannelFrame) string {
	name := ch.Port
	if name == "" {
		name = fmt.Sprintf("channel %d", ch.Index+1)
	}
	if len(ch.Connections) == 0 {
		return name + " (not connected)"
	}
	return name + " <- " + strings.Join(ch.Connections, ", ")
}

// NumericDisplay prints each channel's level in dB, one line per channel.
type NumericDisplay struct {
	out io.Writer
	buf strings.Builder
}

// NewNumericDisplay writes to out.
func NewNumericDisplay(out io.Writer) *NumericDisplay {
	return &NumericDisplay{out: out}
}

// Draw prints "-12.3", or "ch2: -12.3" when there is more than one channel.
func (d *NumericDisplay) Draw(f *Frame) error {
	d.buf.Reset()
	multi := len(f.Channels) > 1
	for _, ch := range f.Channels {
		if multi {
			fmt.Fprintf(&d.buf, "ch%d: ", ch.Index+1)
		}
		d.buf.WriteString(meter.FormatDB(ch.DB))
		d.buf.WriteByte('\n')
	}
	_, err := io.WriteString(d.out, d.buf.String())
	return err
}
