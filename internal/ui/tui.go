// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program as a meter display
package ui

import (
	"io"

	"github.com/Resonate-Protocol/peakmeter/internal/app"
	tea "github.com/charmbracelet/bubbletea"
)

// TUI shows meter frames in an alternate-screen program.
type TUI struct {
	program  *tea.Program
	controls chan app.Control
}

// New creates the TUI. Extra options are passed to the bubbletea program.
func New(clientName string, opts ...tea.ProgramOption) *TUI {
	controls := make(chan app.Control, 4)
	opts = append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)
	return &TUI{
		program:  tea.NewProgram(NewModel(clientName, controls), opts...),
		controls: controls,
	}
}

// NewHeadless creates a TUI that renders to out and reads no input.
func NewHeadless(clientName string, out io.Writer) *TUI {
	return &TUI{
		program: tea.NewProgram(NewModel(clientName, nil),
			tea.WithInput(nil), tea.WithOutput(out), tea.WithoutRenderer()),
		controls: make(chan app.Control),
	}
}

// Controls delivers key commands for the meter loop.
func (t *TUI) Controls() <-chan app.Control {
	return t.controls
}

// Run blocks until the user quits or Quit is called.
func (t *TUI) Run() error {
	_, err := t.program.Run()
	return err
}

// Draw hands a copy of f to the program. It blocks until the program takes
// it, so a slow terminal slows the loop down.
func (t *TUI) Draw(f *app.Frame) error {
	t.program.Send(FrameMsg(f.Clone()))
	return nil
}

// Quit stops the program.
func (t *TUI) Quit() {
	t.program.Quit()
}
