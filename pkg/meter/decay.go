// ABOUTME: Peak-hold bar renderer
// ABOUTME: Instant rise, delayed snap-down hold marker and text bar composition
package meter

import "strings"

// Glyphs are the runes used to draw a meter bar.
type Glyphs struct {
	Fill  rune
	Hold  rune
	Blank rune
}

// DefaultGlyphs draws "####I" style bars.
var DefaultGlyphs = Glyphs{Fill: '#', Hold: 'I', Blank: ' '}

// DecayRenderer tracks the peak-hold marker of one channel and draws its bar.
//
// A wider bar raises the held marker at once. Otherwise the marker stays put
// until more than thresholdTicks updates have passed without a new peak, then
// snaps down to the live width. The tick counter is only cleared by a new
// peak, so after a snap the marker follows the live level until the next rise.
type DecayRenderer struct {
	glyphs Glyphs
	held   int
	ticks  int
	cells  []rune
}

// NewDecayRenderer creates a renderer drawing with g.
func NewDecayRenderer(g Glyphs) *DecayRenderer {
	return &DecayRenderer{glyphs: g}
}

// Update applies one tick with the live bar width and returns the held width.
func (d *DecayRenderer) Update(current, thresholdTicks int) int {
	if current < 0 {
		current = 0
	}
	if current > d.held {
		d.held = current
		d.ticks = 0
		return d.held
	}

	d.ticks++
	if d.ticks > thresholdTicks {
		d.held = current
	}
	return d.held
}

// Held returns the held marker width.
func (d *DecayRenderer) Held() int { return d.held }

// TicksSinceNewPeak returns the number of updates since the last rise.
func (d *DecayRenderer) TicksSinceNewPeak() int { return d.ticks }

// Reset clears the held marker.
func (d *DecayRenderer) Reset() {
	d.held = 0
	d.ticks = 0
}

// Render draws the bar for the live width current against the held marker,
// padded with blanks to exactly width cells.
//
// Cells 1..current-1 are filled. If the marker sits on the live level the
// hold glyph takes cell current, otherwise cell current is filled, blanks run
// up to the marker and the hold glyph takes cell held. Silence with no held
// peak draws the hold glyph in the first cell. Silence under a held peak
// draws no fill glyph at all, only blanks up to the marker; this keeps the
// row at width cells where a leading fill cell would push it one over.
func (d *DecayRenderer) Render(current, width int) string {
	if width <= 0 {
		return ""
	}
	current = clamp(current, 0, width)
	held := clamp(d.held, current, width)

	if cap(d.cells) < width {
		d.cells = make([]rune, width)
	}
	cells := d.cells[:width]
	for i := range cells {
		cells[i] = d.glyphs.Blank
	}

	for i := 0; i < current-1; i++ {
		cells[i] = d.glyphs.Fill
	}
	if held == current {
		cells[max(current-1, 0)] = d.glyphs.Hold
	} else {
		if current > 0 {
			cells[current-1] = d.glyphs.Fill
		}
		cells[held-1] = d.glyphs.Hold
	}

	var b strings.Builder
	b.Grow(width)
	for _, r := range cells {
		b.WriteRune(r)
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
