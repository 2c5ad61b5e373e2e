// Package watch provides a recursive directory watch that yields change
// events for files under a root.
//
// Two backends exist:
//
//   - fsnotify (default): walks the tree and registers every directory with
//     github.com/fsnotify/fsnotify, adding directories created later.
//   - notify: uses github.com/rjeczalik/notify and its native recursive
//     "root/..." watch where the platform supports one.
//
// Both deliver events in arrival order on Events() and close that channel
// once Close has been called. Close is idempotent.
package watch

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Kind classifies a change event.
type Kind int

const (
	Created Kind = iota + 1
	Modified
	Renamed
	Removed
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Renamed:
		return "renamed"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is a single change notification.
type Event struct {
	Kind Kind
	Path string
}

// Watcher is the change-notification source consumed by the supervisor.
type Watcher interface {
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

// Backend names accepted by New.
const (
	BackendFSNotify = "fsnotify"
	BackendNotify   = "notify"
)

// ErrUnknownBackend is returned by New for an unrecognised backend name.
var ErrUnknownBackend = errors.New("unknown watch backend")

const defaultBufferSize = 128

// Options configures a watcher.
type Options struct {
	Backend    string
	IgnoreDirs []string
	BufferSize int
}

// New starts a recursive watch of root with the selected backend.
func New(root string, opts Options) (Watcher, error) {
	switch opts.Backend {
	case "", BackendFSNotify:
		return NewFSNotify(root, opts)
	case BackendNotify:
		return NewNotify(root, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

func (o Options) bufferSize() int {
	if o.BufferSize <= 0 {
		return defaultBufferSize
	}
	return o.BufferSize
}

// ignored reports whether path lies inside one of the ignored directory names
// below root.
func ignored(root, path string, dirs []string) bool {
	if len(dirs) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(rel), "/") {
		for _, d := range dirs {
			if seg == d {
				return true
			}
		}
	}
	return false
}
