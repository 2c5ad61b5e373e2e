package watch

import (
	"path/filepath"
	"sync"

	"github.com/rjeczalik/notify"
)

// NotifyWatcher implements Watcher with rjeczalik/notify's recursive watch.
type NotifyWatcher struct {
	root   string
	ignore []string
	raw    chan notify.EventInfo

	events chan Event
	errors chan error

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup
}

// NewNotify creates a recursive notify watch rooted at root.
func NewNotify(root string, opts Options) (*NotifyWatcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	w := &NotifyWatcher{
		root:    abs,
		ignore:  append([]string(nil), opts.IgnoreDirs...),
		raw:     make(chan notify.EventInfo, opts.bufferSize()),
		events:  make(chan Event, opts.bufferSize()),
		errors:  make(chan error),
		closeCh: make(chan struct{}),
	}
	if err := notify.Watch(filepath.Join(abs, "..."), w.raw, notify.Create, notify.Write, notify.Remove, notify.Rename); err != nil {
		return nil, err
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Events returns the event channel. It is closed after Close.
func (w *NotifyWatcher) Events() <-chan Event { return w.events }

// Errors never carries values; notify reports failures from Watch only.
func (w *NotifyWatcher) Errors() <-chan error { return w.errors }

// Close stops the watch. Safe to call more than once.
func (w *NotifyWatcher) Close() error {
	w.closeOnce.Do(func() {
		notify.Stop(w.raw)
		close(w.closeCh)
		w.wg.Wait()
	})
	return nil
}

func (w *NotifyWatcher) loop() {
	defer w.wg.Done()
	defer close(w.errors)
	defer close(w.events)
	for {
		select {
		case <-w.closeCh:
			return
		case ei := <-w.raw:
			kind := convertNotify(ei.Event())
			if kind == 0 || ignored(w.root, ei.Path(), w.ignore) {
				continue
			}
			select {
			case w.events <- Event{Kind: kind, Path: ei.Path()}:
			case <-w.closeCh:
				return
			}
		}
	}
}

func convertNotify(e notify.Event) Kind {
	switch {
	case e&notify.Create != 0:
		return Created
	case e&notify.Remove != 0:
		return Removed
	case e&notify.Rename != 0:
		return Renamed
	case e&notify.Write != 0:
		return Modified
	default:
		return 0
	}
}
