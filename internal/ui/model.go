// ABOUTME: Bubbletea model for the full-screen meter
// ABOUTME: Holds the latest frame and renders styled bars with their scale
package ui

import (
	"fmt"
	"strings"

	"github.com/Resonate-Protocol/peakmeter/internal/app"
	"github.com/Resonate-Protocol/peakmeter/pkg/meter"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// FrameMsg delivers a new meter frame to the model.
type FrameMsg *app.Frame

// Level thresholds for bar colouring, in dB.
const (
	hotLevel  = -3.0
	warmLevel = -20.0
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	scaleStyle  = lipgloss.NewStyle().Faint(true)
	coolStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warmStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	hotStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	clientName string
	frame      *app.Frame
	controls   chan<- app.Control
	quitting   bool

	// Dimensions
	width  int
	height int
}

// NewModel creates a model titled with the audio client name. Controls are
// sent without blocking; controls may be nil.
func NewModel(clientName string, controls chan<- app.Control) Model {
	return Model{clientName: clientName, controls: controls}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case FrameMsg:
		m.frame = msg
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Stopping meter...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Peak Meter"))
	if m.clientName != "" {
		b.WriteString(valueStyle.Render(" " + m.clientName))
	}
	b.WriteString("\n\n")

	if m.frame == nil {
		b.WriteString(valueStyle.Render("Waiting for audio..."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderRate())
		for _, ch := range m.frame.Channels {
			b.WriteString(m.renderChannel(ch))
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("r: reset peak hold  q: quit"))
	return b.String()
}

func (m Model) renderRate() string {
	return headerStyle.Render("Rate: ") +
		valueStyle.Render(fmt.Sprintf("%d/%d updates/s", m.frame.Rate, m.frame.Target)) +
		"\n\n"
}

func (m Model) renderChannel(ch app.ChannelFrame) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(app.ConnectionLine(ch)))
	b.WriteString(valueStyle.Render(fmt.Sprintf("  %s dB", meter.FormatDB(ch.DB))))
	b.WriteString("\n")
	b.WriteString(scaleStyle.Render(m.frame.ScaleLabels))
	b.WriteString("\n")
	b.WriteString(scaleStyle.Render(m.frame.ScaleTicks))
	b.WriteString("\n")
	b.WriteString(barStyle(ch.DB).Render(ch.Bar))
	b.WriteString("\n\n")
	return b.String()
}

// barStyle colours a bar by its level.
func barStyle(db float64) lipgloss.Style {
	switch {
	case db >= hotLevel:
		return hotStyle
	case db >= warmLevel:
		return warmStyle
	default:
		return coolStyle
	}
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "r":
		m.sendControl(app.ControlResetHold)
	}

	return m, nil
}

func (m Model) sendControl(c app.Control) {
	if m.controls == nil {
		return
	}
	select {
	case m.controls <- c:
	default:
	}
}
