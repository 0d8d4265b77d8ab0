// ABOUTME: Screen layout for the multi-channel meter
// ABOUTME: Maps a channel and line to an absolute terminal row below the status lines
package app

// Lines drawn for each channel, top to bottom.
const (
	LineConnection = iota
	LineLabels
	LineTicks
	LineBar
	RowsPerChannel
)

// Layout positions channel blocks below the status lines printed at startup.
type Layout struct {
	StatusLines int
}

// BaseRow is the first 1-based row the meter may draw on.
func (l Layout) BaseRow() int {
	return l.StatusLines + 1
}

// Row returns the 1-based row of line within channel ch's block.
func (l Layout) Row(ch, line int) int {
	return l.BaseRow() + ch*RowsPerChannel + line
}

// Rows is the total number of rows used by n channels.
func (l Layout) Rows(n int) int {
	return n * RowsPerChannel
}
