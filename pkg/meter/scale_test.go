// ABOUTME: Tests for IEC scale mapping
// ABOUTME: Tests band values, monotonicity and scale line layout
package meter

import (
	"math"
	"strings"
	"testing"
)

func TestIECScaleBands(t *testing.T) {
	tests := []struct {
		name     string
		db       float64
		width    int
		expected int
	}{
		{"regression -10dB at 79", -10, 79, 59},
		{"full scale at 79", 0, 79, 79},
		{"above full scale", 6, 79, 79},
		{"floor", -70, 79, 0},
		{"below floor", -90, 79, 0},
		{"negative infinity", math.Inf(-1), 79, 0},
		{"nan", math.NaN(), 79, 0},
		{"-65dB", -65, 100, 1},
		{"-60dB", -60, 100, 2},
		{"-50dB", -50, 100, 7},
		{"-40dB", -40, 100, 15},
		{"-30dB", -30, 100, 30},
		{"-20dB", -20, 100, 50},
		{"-15dB at 79", -15, 79, 49},
		{"-5dB at 79", -5, 79, 69},
		{"zero width", -10, 0, 0},
		{"negative width", -10, -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IECScale(tt.db, tt.width); got != tt.expected {
				t.Errorf("IECScale(%v, %d): expected %d, got %d", tt.db, tt.width, tt.expected, got)
			}
		})
	}
}

func TestIECScaleBounds(t *testing.T) {
	for _, width := range []int{1, 10, 79, 200} {
		for db := -120.0; db <= -70; db += 0.5 {
			if got := IECScale(db, width); got != 0 {
				t.Fatalf("IECScale(%v, %d): expected 0, got %d", db, width, got)
			}
		}
		for db := 0.0; db <= 24; db += 0.5 {
			if got := IECScale(db, width); got != width {
				t.Fatalf("IECScale(%v, %d): expected %d, got %d", db, width, width, got)
			}
		}
	}
}

func TestIECScaleMonotonicInDB(t *testing.T) {
	for _, width := range []int{1, 7, 40, 79, 160} {
		prev := IECScale(-100, width)
		for db := -100.0; db <= 10; db += 0.05 {
			got := IECScale(db, width)
			if got < prev {
				t.Fatalf("width %d: IECScale decreased at %vdB (%d < %d)", width, db, got, prev)
			}
			if got < 0 || got > width {
				t.Fatalf("width %d: IECScale(%v) = %d out of range", width, db, got)
			}
			prev = got
		}
	}
}

func TestIECScaleMonotonicInWidth(t *testing.T) {
	for db := -80.0; db <= 5; db += 0.25 {
		prev := 0
		for width := 0; width <= 200; width++ {
			got := IECScale(db, width)
			if got < prev {
				t.Fatalf("%vdB: IECScale decreased at width %d (%d < %d)", db, width, got, prev)
			}
			prev = got
		}
	}
}

func TestRenderScaleWidth79(t *testing.T) {
	labels, ticks := RenderScale(79)

	wantLabels := "-60-50   -40   -35   -30     -25     -20       -15       -10       -5         0"
	wantTicks := "|___|_____|_____|_____|_______|_______|_________|_________|_________|_________|"

	if labels != wantLabels {
		t.Errorf("labels:\nexpected %q\ngot      %q", wantLabels, labels)
	}
	if ticks != wantTicks {
		t.Errorf("ticks:\nexpected %q\ngot      %q", wantTicks, ticks)
	}
}

func TestRenderScaleOverlappingLabels(t *testing.T) {
	labels, ticks := RenderScale(20)

	if labels != "-600530252015-105  0" {
		t.Errorf("unexpected labels %q", labels)
	}
	if ticks != "|_||_|_|_|_|__|_|__|" {
		t.Errorf("unexpected ticks %q", ticks)
	}
}

func TestRenderScaleClampsToEdges(t *testing.T) {
	for _, width := range []int{1, 2, 3, 5, 10, 33, 79, 120} {
		labels, ticks := RenderScale(width)
		if len(labels) != width {
			t.Errorf("width %d: label line has %d cells", width, len(labels))
		}
		if len(ticks) != width {
			t.Errorf("width %d: tick line has %d cells", width, len(ticks))
		}
		if width >= 3 && !strings.HasSuffix(labels, "0") {
			t.Errorf("width %d: 0dB label should end at the right edge, got %q", width, labels)
		}
		if !strings.HasSuffix(ticks, "|") {
			t.Errorf("width %d: expected 0dB tick at the right edge, got %q", width, ticks)
		}
		if width < 80 && !strings.HasPrefix(ticks, "|") {
			t.Errorf("width %d: expected -60dB tick clamped to the left edge, got %q", width, ticks)
		}
	}

	if labels, ticks := RenderScale(0); labels != "" || ticks != "" {
		t.Errorf("expected empty scale for zero width")
	}
}

func TestMarkPosition(t *testing.T) {
	if got := MarkPosition(0, 79); got != 78 {
		t.Errorf("expected 0dB at cell 78, got %d", got)
	}
	if got := MarkPosition(-60, 79); got != 0 {
		t.Errorf("expected -60dB at cell 0, got %d", got)
	}
	if got := MarkPosition(-60, 10); got != 0 {
		t.Errorf("expected position clamped to 0, got %d", got)
	}
}
