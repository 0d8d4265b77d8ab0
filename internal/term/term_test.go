// ABOUTME: Tests for the ANSI frame writer
// ABOUTME: Verifies cursor sequences and buffered flushing
package term

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/x/ansi"
)

func TestWriteLine(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out)

	w.WriteLine(3, "-12.0")
	if out.Len() != 0 {
		t.Fatal("output written before Flush")
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	want := ansi.CursorPosition(1, 3) + ansi.EraseEntireLine + "-12.0"
	if got := out.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWriteAt(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out)

	w.WriteAt(10, 2, "I")
	w.Flush()

	if got, want := out.String(), ansi.CursorPosition(10, 2) + "I"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFlushResets(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out)

	w.WriteLine(1, "a")
	w.Flush()
	n := out.Len()

	if err := w.Flush(); err != nil {
		t.Fatalf("empty Flush failed: %v", err)
	}
	if out.Len() != n {
		t.Error("second Flush rewrote the frame")
	}
}

func TestClear(t *testing.T) {
	var out bytes.Buffer
	w := NewWriter(&out)
	w.Clear()
	w.Flush()

	if got, want := out.String(), ansi.EraseEntireScreen + ansi.CursorPosition(1, 1); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestWidthFallback(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if IsTerminal(f) {
		t.Fatal("regular file reported as terminal")
	}
	if got := Width(f, 80); got != 80 {
		t.Errorf("Width = %d, want fallback 80", got)
	}
	if got := MeterWidth(f, 79); got != 79 {
		t.Errorf("MeterWidth = %d, want 79", got)
	}
	if got := Width(nil, 42); got != 42 {
		t.Errorf("Width(nil) = %d, want 42", got)
	}
}
