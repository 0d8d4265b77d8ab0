// ABOUTME: Tests for the feed tail command
// ABOUTME: Reads levels from a live feed and checks line formatting
package main

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/Resonate-Protocol/peakmeter/internal/app"
	"github.com/Resonate-Protocol/peakmeter/internal/server"
)

func TestFormatLevels(t *testing.T) {
	db := -6.02
	msg := &server.LevelsMessage{
		Seq: 12,
		Channels: []server.ChannelLevel{
			{Index: 0, DB: &db},
			{Index: 1},
		},
	}
	want := "    12  ch1:   -6.0  ch2:   -inf"
	if got := formatLevels(msg); got != want {
		t.Errorf("formatLevels() = %q, want %q", got, want)
	}
}

func TestTailReadsFeed(t *testing.T) {
	feed := server.New(server.Config{Addr: "127.0.0.1:0", Name: "meter", Channels: 1})
	if err := feed.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer feed.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		done <- tail(ctx, feed.Addr().String(), 0, 2, &out)
	}()

	for feed.Clients() == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("client never connected")
		case <-time.After(5 * time.Millisecond):
		}
	}

	for seq := uint64(1); seq <= 2; seq++ {
		feed.Publish(&app.Frame{Seq: seq, Channels: []app.ChannelFrame{{DB: math.Inf(-1)}}})
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("tail failed: %v", err)
		}
	case <-ctx.Done():
		t.Fatal("tail did not finish")
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected greeting and 2 updates, got %q", out.String())
	}
	if !strings.HasPrefix(lines[0], "meter (peakmeter ") {
		t.Errorf("unexpected greeting %q", lines[0])
	}
	if !strings.HasSuffix(lines[2], "ch1:   -inf") {
		t.Errorf("unexpected update %q", lines[2])
	}
}

func TestRunBadFlag(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(context.Background(), []string{"--nope"}, &stdout, &stderr); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}
