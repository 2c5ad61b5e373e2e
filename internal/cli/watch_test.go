package cli

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"flutterwatch/internal/watch"
)

type probeWatcher struct {
	events chan watch.Event
	errs   chan error
	closed atomic.Int32
}

func (w *probeWatcher) Events() <-chan watch.Event { return w.events }
func (w *probeWatcher) Errors() <-chan error       { return w.errs }
func (w *probeWatcher) Close() error {
	w.closed.Add(1)
	return nil
}

func TestRunWatchProbePrintsMatches(t *testing.T) {
	w := &probeWatcher{events: make(chan watch.Event, 4), errs: make(chan error, 1)}
	w.events <- watch.Event{Kind: watch.Modified, Path: "/app/lib/main.dart"}
	w.events <- watch.Event{Kind: watch.Modified, Path: "/app/pubspec.yaml"}
	w.events <- watch.Event{Kind: watch.Created, Path: "/app/lib/new.dart"}
	close(w.events)

	var out bytes.Buffer
	err := runWatchProbe(context.Background(), w, "/app", watch.MatchExt(".dart"), &out, zerolog.Nop())
	if err != nil {
		t.Fatalf("runWatchProbe: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines=%q", lines)
	}
	if !strings.Contains(lines[0], "lib/main.dart") || !strings.Contains(lines[1], "lib/new.dart") {
		t.Fatalf("lines=%q", lines)
	}
	if w.closed.Load() != 1 {
		t.Fatalf("watcher not closed")
	}
}

func TestRunWatchProbeStopsOnCancel(t *testing.T) {
	w := &probeWatcher{events: make(chan watch.Event), errs: make(chan error, 1)}
	w.errs <- context.DeadlineExceeded
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	var out bytes.Buffer
	if err := runWatchProbe(ctx, w, "/app", watch.MatchExt(".dart"), &out, zerolog.Nop()); err != nil {
		t.Fatalf("runWatchProbe: %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected output %q", out.String())
	}
	if w.closed.Load() != 1 {
		t.Fatalf("watcher not closed")
	}
}
