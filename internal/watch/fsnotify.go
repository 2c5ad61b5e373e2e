package watch

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FSNotifyWatcher implements Watcher on top of fsnotify. fsnotify only reports
// direct children of a watched directory, so every directory in the tree is
// registered and directories created later are added as they appear.
type FSNotifyWatcher struct {
	root   string
	ignore []string
	fsw    *fsnotify.Watcher

	events chan Event
	errors chan error

	closeOnce sync.Once
	closeCh   chan struct{}
	wg        sync.WaitGroup
	closeErr  error
}

// NewFSNotify creates a recursive fsnotify watch rooted at root.
func NewFSNotify(root string, opts Options) (*FSNotifyWatcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &FSNotifyWatcher{
		root:    abs,
		ignore:  append([]string(nil), opts.IgnoreDirs...),
		fsw:     fsw,
		events:  make(chan Event, opts.bufferSize()),
		errors:  make(chan error, 16),
		closeCh: make(chan struct{}),
	}
	if err := w.addTree(abs); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// addTree registers dir and every non-ignored directory below it.
func (w *FSNotifyWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root && ignored(w.root, p, w.ignore) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil && p == dir {
			return err
		}
		return nil
	})
}

// Events returns the event channel. It is closed after Close.
func (w *FSNotifyWatcher) Events() <-chan Event { return w.events }

// Errors returns the error channel. It is closed after Close.
func (w *FSNotifyWatcher) Errors() <-chan error { return w.errors }

// Close stops the watch. Safe to call more than once.
func (w *FSNotifyWatcher) Close() error {
	w.closeOnce.Do(func() {
		close(w.closeCh)
		w.closeErr = w.fsw.Close()
		w.wg.Wait()
	})
	return w.closeErr
}

func (w *FSNotifyWatcher) loop() {
	defer w.wg.Done()
	defer close(w.errors)
	defer close(w.events)
	for {
		select {
		case <-w.closeCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *FSNotifyWatcher) handle(ev fsnotify.Event) {
	kind := convertOp(ev.Op)
	if kind == 0 {
		return
	}
	if ignored(w.root, ev.Name, w.ignore) {
		return
	}
	if kind == Created {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			if err := w.addTree(ev.Name); err != nil && !errors.Is(err, fs.ErrNotExist) {
				select {
				case w.errors <- err:
				default:
				}
			}
		}
	}
	select {
	case w.events <- Event{Kind: kind, Path: ev.Name}:
	case <-w.closeCh:
	}
}

// convertOp maps an fsnotify op to a Kind. Chmod-only ops map to 0.
func convertOp(op fsnotify.Op) Kind {
	switch {
	case op.Has(fsnotify.Create):
		return Created
	case op.Has(fsnotify.Remove):
		return Removed
	case op.Has(fsnotify.Rename):
		return Renamed
	case op.Has(fsnotify.Write):
		return Modified
	default:
		return 0
	}
}
