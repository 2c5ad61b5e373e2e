package supervisor

import (
	"errors"
	"io"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// Control bytes intercepted by the relay.
const (
	ctrlC byte = 0x03
	ctrlZ byte = 0x1a
)

// SignalFunc delivers sig to this process.
type SignalFunc func(sig syscall.Signal) error

// SignalSelf sends sig to the current process.
func SignalSelf(sig syscall.Signal) error { return unix.Kill(unix.Getpid(), sig) }

// Relay copies operator keystrokes to the child's stdin. Ctrl+C and Ctrl+Z
// become SIGINT and SIGTSTP for this process instead of reaching the child.
type Relay struct {
	in     io.Reader
	input  *Input
	term   Terminal
	signal SignalFunc
	log    zerolog.Logger
}

// NewRelay wires a relay. A nil terminal skips raw mode; a nil signal func
// uses SignalSelf.
func NewRelay(in io.Reader, input *Input, t Terminal, signal SignalFunc, log zerolog.Logger) *Relay {
	if t == nil {
		t = noTerminal{}
	}
	if signal == nil {
		signal = SignalSelf
	}
	return &Relay{in: in, input: input, term: t, signal: signal, log: log}
}

// Run relays until the operator input ends or the child's stdin closes.
// Raw mode is left on; the supervisor's teardown restores the terminal.
func (r *Relay) Run() {
	if r.in == nil || !r.input.Open() {
		return
	}
	if err := r.term.MakeRaw(); err != nil {
		r.log.Debug().Err(err).Msg("raw mode unavailable, relaying line-buffered input")
	}
	buf := make([]byte, 1024)
	for {
		n, err := r.in.Read(buf)
		if n > 0 && !r.Forward(buf[:n]) {
			return
		}
		if err != nil {
			return
		}
	}
}

// Forward handles one chunk of input and reports whether relaying should
// continue. A control byte anywhere in the chunk raises the signal and drops
// the whole chunk.
func (r *Relay) Forward(chunk []byte) bool {
	for _, b := range chunk {
		switch b {
		case ctrlC:
			r.raise(unix.SIGINT)
			return true
		case ctrlZ:
			r.suspend()
			return true
		}
	}
	if _, err := r.input.Write(chunk); err != nil {
		if !errors.Is(err, ErrInputClosed) {
			r.log.Debug().Err(err).Msg("relay write failed")
		}
		return false
	}
	relayedBytesTotal.Add(float64(len(chunk)))
	return true
}

func (r *Relay) raise(sig syscall.Signal) {
	if err := r.signal(sig); err != nil {
		r.log.Warn().Err(err).Str("signal", sig.String()).Msg("signal self failed")
	}
}

// suspend stops this process. The terminal leaves raw mode while stopped so
// the parent shell gets a sane tty, and raw mode returns on resume.
func (r *Relay) suspend() {
	_ = r.term.Restore()
	r.raise(unix.SIGTSTP)
	if err := r.term.MakeRaw(); err != nil && !errors.Is(err, ErrNotTerminal) {
		r.log.Debug().Err(err).Msg("re-enter raw mode after resume")
	}
}
