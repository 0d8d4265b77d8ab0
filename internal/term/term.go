// ABOUTME: Absolute cursor positioning and terminal size detection
// ABOUTME: Buffers one frame of ANSI output and flushes it in a single write
package term

import (
	"bytes"
	"io"
	"os"

	"github.com/charmbracelet/x/ansi"
	xterm "golang.org/x/term"
)

// Writer accumulates positioned lines and writes them out on Flush.
type Writer struct {
	out io.Writer
	buf bytes.Buffer
}

// NewWriter returns a Writer that flushes to out.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// MoveTo positions the cursor at a 1-based column and row.
func (w *Writer) MoveTo(col, row int) {
	w.buf.WriteString(ansi.CursorPosition(col, row))
}

// WriteAt writes s at a 1-based position without clearing the line.
func (w *Writer) WriteAt(col, row int, s string) {
	w.MoveTo(col, row)
	w.buf.WriteString(s)
}

// WriteLine replaces the content of a 1-based row with s.
func (w *Writer) WriteLine(row int, s string) {
	w.MoveTo(1, row)
	w.buf.WriteString(ansi.EraseEntireLine)
	w.buf.WriteString(s)
}

// Clear erases the screen and homes the cursor.
func (w *Writer) Clear() {
	w.buf.WriteString(ansi.EraseEntireScreen)
	w.MoveTo(1, 1)
}

// Flush writes everything buffered since the last Flush.
func (w *Writer) Flush() error {
	if w.buf.Len() == 0 {
		return nil
	}
	_, err := w.out.Write(w.buf.Bytes())
	w.buf.Reset()
	return err
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return xterm.IsTerminal(int(f.Fd()))
}

// Width returns the column count of the terminal on f, or fallback when f is
// not a terminal.
func Width(f *os.File, fallback int) int {
	if f == nil || !IsTerminal(f) {
		return fallback
	}
	w, _, err := xterm.GetSize(int(f.Fd()))
	if err != nil || w <= 0 {
		return fallback
	}
	return w
}

// MeterWidth is the usable meter width on f: one column short of the
// terminal so the bar never wraps.
func MeterWidth(f *os.File, fallback int) int {
	w := Width(f, fallback+1) - 1
	return max(w, 1)
}
