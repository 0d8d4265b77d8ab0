// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests frame updates, key handling and rendering
package ui

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/Resonate-Protocol/peakmeter/internal/app"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

func testFrame() *app.Frame {
	return &app.Frame{
		Seq:         3,
		Rate:        6,
		Target:      8,
		MeterWidth:  10,
		ScaleLabels: "-20  -5  0",
		ScaleTicks:  "|____|___|",
		Channels: []app.ChannelFrame{
			{Index: 0, Port: "meter:in", Connections: []string{"system:capture_1"}, DB: -12.5, Width: 5, Held: 7, Bar: "#####  I  "},
		},
	}
}

func TestNewModel(t *testing.T) {
	model := NewModel("meter", nil)

	if model.frame != nil {
		t.Error("expected no frame initially")
	}
	if model.quitting {
		t.Error("expected quitting to be false initially")
	}
	if !strings.Contains(model.View(), "Waiting for audio") {
		t.Error("expected waiting message before the first frame")
	}
}

func TestFrameMsg(t *testing.T) {
	model := NewModel("meter", nil)

	updated, cmd := model.Update(FrameMsg(testFrame()))
	if cmd != nil {
		t.Error("expected no command for a frame")
	}
	m := updated.(Model)
	if m.frame == nil || m.frame.Seq != 3 {
		t.Fatal("frame not stored")
	}

	view := m.View()
	for _, want := range []string{"meter:in <- system:capture_1", "-12.5 dB", "6/8", "#####  I", "|____|___|"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestWindowSize(t *testing.T) {
	model := NewModel("meter", nil)
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m := updated.(Model)

	if m.width != 100 || m.height != 30 {
		t.Errorf("expected 100x30, got %dx%d", m.width, m.height)
	}
}

func TestQuitKey(t *testing.T) {
	model := NewModel("meter", nil)

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if !updated.(Model).quitting {
		t.Error("expected quitting state")
	}
}

func TestResetKeySendsControl(t *testing.T) {
	controls := make(chan app.Control, 1)
	model := NewModel("meter", controls)

	model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})

	select {
	case c := <-controls:
		if c != app.ControlResetHold {
			t.Errorf("got control %d", c)
		}
	default:
		t.Fatal("no control sent")
	}

	// a full channel never blocks the UI
	controls <- app.ControlResetHold
	model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
}

func TestBarStyle(t *testing.T) {
	tests := []struct {
		db   float64
		want string
	}{
		{0, "hot"},
		{-3, "hot"},
		{-10, "warm"},
		{-20, "warm"},
		{-40, "cool"},
		{math.Inf(-1), "cool"},
	}
	styles := map[string]lipgloss.TerminalColor{
		"hot":  hotStyle.GetForeground(),
		"warm": warmStyle.GetForeground(),
		"cool": coolStyle.GetForeground(),
	}

	for _, tt := range tests {
		if got := barStyle(tt.db).GetForeground(); got != styles[tt.want] {
			t.Errorf("barStyle(%v) is not %s", tt.db, tt.want)
		}
	}
}

func TestHeadlessDraw(t *testing.T) {
	var out bytes.Buffer
	tui := NewHeadless("meter", &out)

	done := make(chan error, 1)
	go func() { done <- tui.Run() }()

	if err := tui.Draw(testFrame()); err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	tui.Quit()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("program did not quit")
	}
}
