// ABOUTME: Startup status lines written before the meter takes over the screen
// ABOUTME: Counts each line so the layout can start drawing below them
package app

import (
	"fmt"
	"io"
	"strings"
)

// Status prints startup messages at or below a verbosity and counts the rows
// they occupy.
type Status struct {
	out       io.Writer
	verbosity int
	lines     int
}

// NewStatus writes messages to out when their level is within verbosity.
func NewStatus(out io.Writer, verbosity int) *Status {
	return &Status{out: out, verbosity: verbosity}
}

// Printf writes one status line when level <= verbosity.
func (s *Status) Printf(level int, format string, args ...any) {
	if level > s.verbosity {
		return
	}
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	fmt.Fprintln(s.out, msg)
	s.lines += strings.Count(msg, "\n") + 1
}

// Lines returns how many rows have been printed.
func (s *Status) Lines() int {
	return s.lines
}
