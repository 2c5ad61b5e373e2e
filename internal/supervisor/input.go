package supervisor

import (
	"bufio"
	"io"
	"sync"
)

// Input is the child's stdin. A nil writer or a failed write turns it into
// the closed variant; every write checks the variant first.
type Input struct {
	mu     sync.Mutex
	w      io.WriteCloser
	bw     *bufio.Writer
	closed bool
}

// NewInput wraps w. NewInput(nil) returns a closed Input.
func NewInput(w io.WriteCloser) *Input {
	if w == nil {
		return &Input{closed: true}
	}
	return &Input{w: w, bw: bufio.NewWriter(w)}
}

// Open reports whether writes can still be attempted.
func (in *Input) Open() bool {
	if in == nil {
		return false
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	return !in.closed
}

// Write writes p and flushes it before returning.
func (in *Input) Write(p []byte) (int, error) {
	if in == nil {
		return 0, ErrInputClosed
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return 0, ErrInputClosed
	}
	n, err := in.bw.Write(p)
	if err == nil {
		err = in.bw.Flush()
	}
	if err != nil {
		in.closed = true
		return n, err
	}
	return n, nil
}

// Close closes the underlying writer. Safe to call more than once.
func (in *Input) Close() error {
	if in == nil {
		return nil
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed && in.w == nil {
		return nil
	}
	in.closed = true
	w := in.w
	in.w = nil
	if w == nil {
		return nil
	}
	return w.Close()
}
