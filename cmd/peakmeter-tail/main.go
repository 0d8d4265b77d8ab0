// ABOUTME: Prints the levels published by a running peakmeter feed
// ABOUTME: Finds the feed by address or mDNS and writes one line per update
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/Resonate-Protocol/peakmeter/internal/app"
	"github.com/Resonate-Protocol/peakmeter/internal/logging"
	"github.com/Resonate-Protocol/peakmeter/internal/server"
	"github.com/Resonate-Protocol/peakmeter/pkg/meter"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(parent context.Context, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("peakmeter-tail", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.StringP("addr", "a", "", "feed address (host:port); discovered via mDNS when empty")
	timeout := fs.Duration("discover-timeout", 3*time.Second, "how long to browse for feeds")
	count := fs.IntP("count", "n", 0, "exit after this many updates (0 = run until interrupted)")
	verbose := fs.CountP("verbose", "v", "increase log verbosity")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 1
	}

	if _, err := logging.Configure(logging.Options{Verbosity: *verbose, Stderr: stderr}); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(parent, app.ShutdownSignals()...)
	defer stop()

	if err := tail(ctx, *addr, *timeout, *count, stdout); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func tail(ctx context.Context, addr string, timeout time.Duration, count int, out io.Writer) error {
	if addr == "" {
		endpoints, err := server.Discover(ctx, timeout)
		if err != nil {
			return err
		}
		if len(endpoints) == 0 {
			return fmt.Errorf("no %s feeds found", server.ServiceType)
		}
		addr = endpoints[0].Addr()
	}

	c, err := server.Dial(ctx, addr)
	if err != nil {
		return err
	}
	defer c.Close()

	go func() {
		<-ctx.Done()
		c.Close()
	}()

	hello := c.Hello()
	fmt.Fprintf(out, "%s (%s %s), %d channel(s)\n", hello.Name, hello.Product, hello.Version, hello.Channels)

	for n := 0; count == 0 || n < count; n++ {
		msg, err := c.Next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		fmt.Fprintln(out, formatLevels(msg))
	}
	return nil
}

func formatLevels(msg *server.LevelsMessage) string {
	parts := make([]string, 0, len(msg.Channels)+1)
	parts = append(parts, fmt.Sprintf("%6d", msg.Seq))
	for _, ch := range msg.Channels {
		db := meter.FormatDB(dbOf(ch))
		parts = append(parts, fmt.Sprintf("ch%d: %6s", ch.Index+1, db))
	}
	return strings.Join(parts, "  ")
}

func dbOf(ch server.ChannelLevel) float64 {
	if ch.DB == nil {
		return math.Inf(-1)
	}
	return *ch.DB
}
