package supervisor

import (
	"errors"
	"os"
	"sync"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Terminal toggles raw input mode on the operator's terminal.
type Terminal interface {
	MakeRaw() error
	Restore() error
}

// ErrNotTerminal is returned by MakeRaw when stdin is not a terminal.
var ErrNotTerminal = errors.New("stdin is not a terminal")

// TTY is a Terminal backed by a file descriptor.
type TTY struct {
	fd    int
	mu    sync.Mutex
	saved *term.State
}

// NewTTY returns a Terminal for f (usually os.Stdin).
func NewTTY(f *os.File) *TTY { return &TTY{fd: int(f.Fd())} }

// MakeRaw switches to raw input. Output post-processing (LF to CRLF) stays
// on so log lines and child output keep their line starts.
func (t *TTY) MakeRaw() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !term.IsTerminal(t.fd) {
		return ErrNotTerminal
	}
	if t.saved != nil {
		return nil
	}
	st, err := term.MakeRaw(t.fd)
	if err != nil {
		return err
	}
	t.saved = st
	if tio, err := unix.IoctlGetTermios(t.fd, ioctlGetTermios); err == nil {
		tio.Oflag |= unix.OPOST | unix.ONLCR
		_ = unix.IoctlSetTermios(t.fd, ioctlSetTermios, tio)
	}
	return nil
}

// Restore puts the saved mode back. It is a no-op when not in raw mode.
func (t *TTY) Restore() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.saved == nil {
		return nil
	}
	st := t.saved
	t.saved = nil
	return term.Restore(t.fd, st)
}

type noTerminal struct{}

func (noTerminal) MakeRaw() error { return ErrNotTerminal }
func (noTerminal) Restore() error { return nil }
