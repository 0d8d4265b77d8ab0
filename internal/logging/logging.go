// ABOUTME: slog setup for the meter
// ABOUTME: Maps verbosity to a level and picks a text or JSON handler
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Options control where and how much the meter logs.
type Options struct {
	Verbosity int
	LogFile   string
	// Discard drops log output when no log file is set, used while a
	// full-screen display owns the terminal.
	Discard bool
	Stderr  io.Writer
}

// LevelFor maps a verbosity count to a log level.
func LevelFor(verbosity int) slog.Level {
	switch {
	case verbosity <= 0:
		return slog.LevelError
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// NewLogger builds a logger writing text to w at the given verbosity.
func NewLogger(w io.Writer, verbosity int) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: LevelFor(verbosity)}))
}

// Configure installs the default slog logger. A log file gets a JSON handler
// and is returned so the caller can close it.
func Configure(opts Options) (*os.File, error) {
	handlerOpts := &slog.HandlerOptions{Level: LevelFor(opts.Verbosity)}

	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		slog.SetDefault(slog.New(slog.NewJSONHandler(f, handlerOpts)))
		return f, nil
	}

	var w io.Writer = os.Stderr
	if opts.Stderr != nil {
		w = opts.Stderr
	}
	if opts.Discard {
		w = io.Discard
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, handlerOpts)))
	return nil, nil
}
