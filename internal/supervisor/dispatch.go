package supervisor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// liveness is the part of Process the dispatcher needs.
type liveness interface {
	Alive() bool
}

// readiness is the part of Detector the dispatcher needs.
type readiness interface {
	Ready() bool
}

// Dispatcher writes the reload command into the child's stdin when the child
// is alive, its stdin is open and it has announced readiness.
type Dispatcher struct {
	proc    liveness
	input   *Input
	ready   readiness
	command []byte
	log     zerolog.Logger
	pub     EventPublisher
	now     func() time.Time

	count atomic.Int64

	mu       sync.Mutex
	lastPath string
	lastAt   time.Time
}

// NewDispatcher wires a dispatcher. A nil publisher drops events.
func NewDispatcher(proc liveness, input *Input, ready readiness, command string, log zerolog.Logger, pub EventPublisher) *Dispatcher {
	if pub == nil {
		pub = noopPublisher{}
	}
	return &Dispatcher{
		proc:    proc,
		input:   input,
		ready:   ready,
		command: []byte(command),
		log:     log,
		pub:     pub,
		now:     time.Now,
	}
}

// Dispatch sends one reload for path. A rejected dispatch is not retried; the
// next qualifying change goes through the gate again.
func (d *Dispatcher) Dispatch(path string) error {
	if err := d.check(); err != nil {
		reloadsDroppedTotal.WithLabelValues(dropReason(err)).Inc()
		d.log.Debug().Str("path", path).Err(err).Msg("reload skipped")
		return err
	}
	n := d.count.Add(1)
	at := d.now()
	d.log.Info().
		Int64("reload", n).
		Str("at", at.Format("15:04:05")).
		Str("path", path).
		Msgf("Hot reload #%d triggered by: %s", n, path)
	if _, err := d.input.Write(d.command); err != nil {
		reloadsDroppedTotal.WithLabelValues(dropReason(err)).Inc()
		d.log.Debug().Err(err).Msg("reload write failed")
		return err
	}
	reloadsTotal.Inc()
	d.mu.Lock()
	d.lastPath, d.lastAt = path, at
	d.mu.Unlock()
	d.pub.Publish(Event{Name: EventReload, Fields: map[string]any{"count": n, "path": path}})
	return nil
}

func (d *Dispatcher) check() error {
	if d.proc == nil || !d.proc.Alive() {
		return ErrChildExited
	}
	if !d.input.Open() {
		return ErrInputClosed
	}
	if d.ready == nil || !d.ready.Ready() {
		return ErrNotReady
	}
	return nil
}

// Count is the number of reloads dispatched so far.
func (d *Dispatcher) Count() int64 { return d.count.Load() }

// Last returns the path and time of the most recent successful reload.
func (d *Dispatcher) Last() (string, time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastPath, d.lastAt
}
