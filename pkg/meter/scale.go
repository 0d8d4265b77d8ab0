// ABOUTME: IEC 60268-10 meter deflection mapping
// ABOUTME: Converts dB to bar width and draws the labelled dB scale
package meter

import "strconv"

// ScaleMarks are the dB values labelled on the scale, in drawing order.
var ScaleMarks = []int{0, -5, -10, -15, -20, -25, -30, -35, -40, -50, -60}

// Scale line glyphs.
const (
	ScaleRule = '_'
	ScaleTick = '|'
)

// maxLabelLen truncates labels the way a 4-byte buffer would ("-60" fits).
const maxLabelLen = 3

// IECScale maps db to a bar width in [0, width] using the piecewise-linear
// IEC 60268-10 (DIN) deflection curve. Values below -70 dB, -Inf and NaN
// give zero deflection; 0 dB and above give the full width.
func IECScale(db float64, width int) int {
	if width <= 0 {
		return 0
	}
	return int(deflection(db) * float64(width) / 100)
}

// deflection returns the meter deflection in percent.
func deflection(db float64) float64 {
	switch {
	case !(db >= -70): // catches NaN and -Inf
		return 0
	case db < -60:
		return (db + 70) * 0.25
	case db < -50:
		return (db+60)*0.5 + 2.5
	case db < -40:
		return (db+50)*0.75 + 7.5
	case db < -30:
		return (db+40)*1.5 + 15
	case db < -20:
		return (db+30)*2.0 + 30
	case db < 0:
		return (db+20)*2.5 + 50
	default:
		return 100
	}
}

// MarkPosition returns the zero-based cell index of the tick for mark.
func MarkPosition(mark, width int) int {
	pos := IECScale(float64(mark), width) - 1
	if pos < 0 {
		pos = 0
	}
	if pos > width-1 {
		pos = width - 1
	}
	return pos
}

// RenderScale draws the label line and the tick line of the scale, each
// exactly width cells. A label is centred on its tick, starting at
// max(0, pos-len/2) and shifted left to end at width if it would overrun.
// Overlapping labels overwrite each other in ScaleMarks order.
func RenderScale(width int) (labels, ticks string) {
	if width <= 0 {
		return "", ""
	}

	label := make([]byte, width)
	rule := make([]byte, width)
	for i := range label {
		label[i] = ' '
		rule[i] = ScaleRule
	}

	for _, mark := range ScaleMarks {
		pos := MarkPosition(mark, width)

		text := strconv.Itoa(mark)
		if len(text) > maxLabelLen {
			text = text[:maxLabelLen]
		}
		if len(text) > width {
			text = text[:width]
		}

		start := pos - len(text)/2
		if start < 0 {
			start = 0
		}
		if start+len(text) > width {
			start = width - len(text)
		}
		copy(label[start:], text)

		rule[pos] = ScaleTick
	}

	return string(label), string(rule)
}
