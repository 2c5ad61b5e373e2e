package supervisor

import "errors"

var (
	// ErrInputClosed is returned when writing to a child stdin that is gone.
	ErrInputClosed = errors.New("child input closed")
	// ErrNotReady means the readiness marker has not been seen yet.
	ErrNotReady = errors.New("child not ready for reload")
	// ErrChildExited means there is no live child to reload.
	ErrChildExited = errors.New("child process not running")
)

// spawnError wraps a failure to start the child process.
type spawnError struct {
	cmd string
	err error
}

func (e spawnError) Error() string { return "start " + e.cmd + ": " + e.err.Error() }

func (e spawnError) Unwrap() error { return e.err }

// IsSpawnError reports whether err came from starting the child.
func IsSpawnError(err error) bool {
	var se spawnError
	return errors.As(err, &se)
}

// IsDispatchRejected reports whether err is one of the expected reasons for a
// reload to be dropped.
func IsDispatchRejected(err error) bool {
	return errors.Is(err, ErrNotReady) || errors.Is(err, ErrChildExited) || errors.Is(err, ErrInputClosed)
}
