// ABOUTME: Tests for terminal displays, layout and status lines
// ABOUTME: Checks row placement, numeric formatting and status line counting
package app

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

func TestLayoutRows(t *testing.T) {
	l := Layout{StatusLines: 3}

	if l.BaseRow() != 4 {
		t.Errorf("BaseRow = %d, want 4", l.BaseRow())
	}

	tests := []struct {
		ch, line, want int
	}{
		{0, LineConnection, 4},
		{0, LineBar, 7},
		{1, LineConnection, 8},
		{2, LineTicks, 4 + 2*4 + 2},
	}
	for _, tt := range tests {
		if got := l.Row(tt.ch, tt.line); got != tt.want {
			t.Errorf("Row(%d, %d) = %d, want %d", tt.ch, tt.line, got, tt.want)
		}
	}
	if l.Rows(3) != 12 {
		t.Errorf("Rows(3) = %d", l.Rows(3))
	}
}

func TestStatusCountsLines(t *testing.T) {
	var buf bytes.Buffer
	s := NewStatus(&buf, 1)

	s.Printf(1, "Registering as '%s'.", "meter")
	s.Printf(2, "hidden detail")
	s.Printf(0, "Meter is not connected to a port.\n")
	s.Printf(1, "two\nlines")

	if s.Lines() != 4 {
		t.Errorf("Lines = %d, want 4", s.Lines())
	}
	want := "Registering as 'meter'.\nMeter is not connected to a port.\ntwo\nlines\n"
	if buf.String() != want {
		t.Errorf("output %q, want %q", buf.String(), want)
	}

	quiet := NewStatus(&buf, 0)
	quiet.Printf(1, "nope")
	if quiet.Lines() != 0 {
		t.Error("quiet status counted a suppressed line")
	}
}

func TestConnectionLine(t *testing.T) {
	tests := []struct {
		ch   ChannelFrame
		want string
	}{
		{ChannelFrame{Port: "meter:in"}, "meter:in (not connected)"},
		{ChannelFrame{Port: "meter:in", Connections: []string{"system:capture_1"}}, "meter:in <- system:capture_1"},
		{ChannelFrame{Port: "meter:in_2", Connections: []string{"a:1", "b:2"}}, "meter:in_2 <- a:1, b:2"},
		{ChannelFrame{Index: 2}, "channel 3 (not connected)"},
	}
	for _, tt := range tests {
		if got := ConnectionLine(tt.ch); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}

func TestTerminalDisplayDraw(t *testing.T) {
	var buf bytes.Buffer
	d := NewTerminalDisplay(&buf, Layout{StatusLines: 2})

	f := &Frame{
		ScaleLabels: "LABELS",
		ScaleTicks:  "TICKS",
		Channels: []ChannelFrame{
			{Index: 0, Port: "meter:in_1", Bar: "###I"},
			{Index: 1, Port: "meter:in_2", Bar: "#I  "},
		},
	}
	if err := d.Draw(f); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}

	out := buf.String()
	wants := []string{
		ansi.CursorPosition(1, 3) + ansi.EraseEntireLine + "meter:in_1 (not connected)",
		ansi.CursorPosition(1, 4) + ansi.EraseEntireLine + "LABELS",
		ansi.CursorPosition(1, 5) + ansi.EraseEntireLine + "TICKS",
		ansi.CursorPosition(1, 6) + ansi.EraseEntireLine + "###I",
		ansi.CursorPosition(1, 10) + ansi.EraseEntireLine + "#I  ",
	}
	for _, w := range wants {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q", w)
		}
	}
	if strings.Contains(out, ansi.EraseEntireScreen) {
		t.Error("screen cleared without a resize")
	}
}

func TestTerminalDisplayInvalidate(t *testing.T) {
	var buf bytes.Buffer
	d := NewTerminalDisplay(&buf, Layout{StatusLines: 2})
	d.Invalidate()

	f := &Frame{Channels: []ChannelFrame{{Index: 0, Bar: "I"}}}
	d.Draw(f)

	out := buf.String()
	if !strings.HasPrefix(out, ansi.EraseEntireScreen) {
		t.Errorf("resize did not clear the screen: %q", out)
	}
	if !strings.Contains(out, ansi.CursorPosition(1, 4)+ansi.EraseEntireLine+"I") {
		t.Error("bar not moved to the top after clear")
	}

	buf.Reset()
	d.Draw(f)
	if strings.Contains(buf.String(), ansi.EraseEntireScreen) {
		t.Error("screen cleared twice")
	}
}

func TestNumericDisplay(t *testing.T) {
	var buf bytes.Buffer
	d := NewNumericDisplay(&buf)

	d.Draw(&Frame{Channels: []ChannelFrame{{DB: -12.34}}})
	if buf.String() != "-12.3\n" {
		t.Errorf("single channel output %q", buf.String())
	}

	buf.Reset()
	d.Draw(&Frame{Channels: []ChannelFrame{
		{Index: 0, DB: math.Inf(-1)},
		{Index: 1, DB: -0.04},
	}})
	if want := "ch1: -inf\nch2: -0.0\n"; buf.String() != want {
		t.Errorf("output %q, want %q", buf.String(), want)
	}
}

func TestFrameClone(t *testing.T) {
	f := &Frame{Seq: 1, Channels: []ChannelFrame{{Connections: []string{"a"}}}}
	c := f.Clone()

	f.Channels[0].Connections[0] = "b"
	f.Channels[0].DB = -3
	if c.Channels[0].Connections[0] != "a" || c.Channels[0].DB != 0 {
		t.Error("clone shares channel state")
	}
}
