// ABOUTME: Entry point for the console peak meter
// ABOUTME: Wires config, audio host, meter loop, displays and the level feed
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/Resonate-Protocol/peakmeter/internal/app"
	"github.com/Resonate-Protocol/peakmeter/internal/config"
	"github.com/Resonate-Protocol/peakmeter/internal/host"
	"github.com/Resonate-Protocol/peakmeter/internal/logging"
	"github.com/Resonate-Protocol/peakmeter/internal/server"
	"github.com/Resonate-Protocol/peakmeter/internal/term"
	"github.com/Resonate-Protocol/peakmeter/internal/ui"
	"github.com/Resonate-Protocol/peakmeter/internal/version"
	"github.com/Resonate-Protocol/peakmeter/pkg/meter"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// run returns the process exit status.
func run(parent context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if cfg.ShowVersion {
		fmt.Fprintln(stdout, version.String())
		return 0
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		fmt.Fprintln(stderr, "Run 'peakmeter --help' for usage.")
		return 1
	}

	// log lines on the terminal would shift the rows the meter draws on
	logFile, err := logging.Configure(logging.Options{
		Verbosity: cfg.Verbosity,
		LogFile:   cfg.LogFile,
		Discard:   !cfg.Numeric,
		Stderr:    stderr,
	})
	if err != nil {
		fmt.Fprintf(stderr, "error opening log file: %v\n", err)
		return 1
	}
	if logFile != nil {
		defer logFile.Close()
	}

	ctx, stop := signal.NotifyContext(parent, app.ShutdownSignals()...)
	defer stop()

	if err := meterMain(ctx, cfg, stdout, stderr); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func meterMain(ctx context.Context, cfg *config.Config, stdout, stderr io.Writer) error {
	terminalMode := !cfg.Numeric && !cfg.TUI
	stdoutFile, _ := stdout.(*os.File)

	if terminalMode && stdoutFile != nil && term.IsTerminal(stdoutFile) {
		w := term.NewWriter(stdout)
		w.Clear()
		w.Flush()
	}

	status := app.NewStatus(stderr, cfg.Verbosity)
	status.Printf(2, "Reference level: %.1fdB", cfg.RefLevel)
	status.Printf(2, "Updates per second: %d", cfg.Rate)

	width := cfg.Width
	var autoWidth func() int
	if width == 0 {
		autoWidth = func() int { return term.MeterWidth(stdoutFile, config.DefaultWidth) }
		width = autoWidth()
	}
	if !cfg.Numeric {
		status.Printf(2, "Console Width: %d", width)
	}

	h, err := host.New(host.Config{
		Backend:    cfg.Host,
		ServerName: cfg.ServerName,
		Device:     cfg.Device,
		File:       cfg.File,
		Monitor:    cfg.Monitor,
		ToneFreq:   cfg.ToneFreq,
		ToneLevel:  cfg.ToneLevel,
	})
	if err != nil {
		if errors.Is(err, host.ErrNotSupported) {
			return fmt.Errorf("%w; try --host malgo or --host tone", err)
		}
		return err
	}
	if err := h.Open(host.DefaultClientName, cfg.Channels); err != nil {
		return err
	}

	// every exit path from here on, panics included, leaves the audio graph
	releaser := host.NewReleaser(h, 0)
	defer func() {
		if err := releaser.Release(); err != nil {
			slog.Warn("releasing audio host", "err", err)
		}
	}()

	status.Printf(1, "Registering as '%s'.", h.ClientName())

	channels, err := meter.NewChannels(cfg.Channels, meter.DefaultGlyphs)
	if err != nil {
		return err
	}
	if err := h.Activate(func(ch int, block []float32) {
		channels[ch].Peak.RecordBlock(block)
	}); err != nil {
		return err
	}

	if err := connectSources(h, cfg, status); err != nil {
		return err
	}

	var sinks []app.Sink
	if cfg.Listen != "" {
		feed := server.New(server.Config{
			Addr:      cfg.Listen,
			Name:      h.ClientName(),
			Advertise: cfg.Advertise,
			Channels:  cfg.Channels,
		})
		if err := feed.Start(); err != nil {
			return err
		}
		defer feed.Stop()
		sinks = append(sinks, feed)
	}

	loopCfg := app.LoopConfig{
		Channels:  channels,
		Ports:     h.Ports(),
		Width:     width,
		RefLevel:  cfg.RefLevel,
		Numeric:   cfg.Numeric,
		Rate:      cfg.Rate,
		Sinks:     sinks,
		AutoWidth: autoWidth,
	}

	layout := app.Layout{StatusLines: status.Lines()}
	switch {
	case cfg.Numeric:
		loopCfg.Display = app.NewNumericDisplay(stdout)
	case cfg.TUI:
		tui := ui.New(h.ClientName())
		loopCfg.Display = tui
		loopCfg.Controls = tui.Controls()

		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		tuiDone := make(chan struct{})
		go func() {
			defer close(tuiDone)
			defer cancel()
			if err := tui.Run(); err != nil {
				slog.Error("TUI failed", "err", err)
			}
		}()
		defer func() {
			tui.Quit()
			<-tuiDone
		}()
	default:
		loopCfg.Display = app.NewTerminalDisplay(stdout, layout)
		if signals := app.ResizeSignals(); len(signals) > 0 {
			resize := make(chan os.Signal, 1)
			signal.Notify(resize, signals...)
			defer signal.Stop(resize)
			loopCfg.Interrupts = resize
		}
	}

	loop, err := app.NewLoop(loopCfg)
	if err != nil {
		return err
	}
	if err := loop.Run(ctx); err != nil {
		return err
	}

	if terminalMode {
		// leave the cursor below the meter
		w := term.NewWriter(stdout)
		w.MoveTo(1, layout.Row(cfg.Channels, 0))
		w.Flush()
		fmt.Fprintln(stdout)
	}
	return nil
}

// connectSources connects each named source; source i feeds channel
// i mod channels. Capture hosts fall back to all of their device channels.
func connectSources(h host.Host, cfg *config.Config, status *app.Status) error {
	sources := cfg.Ports
	if len(sources) == 0 {
		if ds, ok := h.(host.DefaultSourcer); ok {
			sources = ds.DefaultSources()
		}
	}
	if len(sources) == 0 {
		status.Printf(1, "Meter is not connected to a port.")
		return nil
	}

	ports := h.Ports()
	for i, src := range sources {
		ch := i % cfg.Channels
		status.Printf(1, "Connecting '%s' to '%s'...", src, ports[ch].Name())
		if err := h.Connect(src, ch); err != nil {
			return err
		}
	}
	return nil
}
