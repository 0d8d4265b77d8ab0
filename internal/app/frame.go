// ABOUTME: Snapshot of one meter update, handed to displays and the level feed
// ABOUTME: Carries per-channel levels, rendered bars and the scale header
package app

import (
	"slices"
	"time"
)

// Frame is everything shown for one update.
type Frame struct {
	Seq        uint64
	At         time.Time
	Rate       int
	Target     int
	MeterWidth int
	Numeric    bool
	// ScaleLabels and ScaleTicks are empty in numeric mode.
	ScaleLabels string
	ScaleTicks  string
	Channels    []ChannelFrame
}

// ChannelFrame is one channel's state in a Frame.
type ChannelFrame struct {
	Index       int
	Port        string
	Connections []string
	Peak        float32
	DB          float64
	// Width is the deflection in cells, Held the held peak position.
	Width int
	Held  int
	Bar   string
}

// Clone returns a deep copy that stays valid after the loop reuses f.
func (f *Frame) Clone() *Frame {
	c := *f
	c.Channels = make([]ChannelFrame, len(f.Channels))
	for i, ch := range f.Channels {
		ch.Connections = slices.Clone(ch.Connections)
		c.Channels[i] = ch
	}
	return &c
}
