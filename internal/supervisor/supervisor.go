package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"flutterwatch/internal/watch"
	"flutterwatch/pkg/types"
)

// State is the supervisor lifecycle state.
type State string

const (
	StateStarting     State = "starting"
	StateRunning      State = "running"
	StateShuttingDown State = "shutting_down"
	StateTerminated   State = "terminated"
)

// Supervisor owns one child process, the directory watch feeding its reloads
// and the operator input relay.
type Supervisor struct {
	cfg    Config
	log    zerolog.Logger
	pub    EventPublisher
	filter watch.Filter
	term   *guardedTerminal

	mu         sync.RWMutex
	state      State
	startedAt  time.Time
	watcher    watch.Watcher
	child      Process
	detector   *Detector
	gate       *Gate
	dispatcher *Dispatcher
	outputDone chan struct{}

	teardownOnce sync.Once
	teardownErr  error
}

// New validates cfg and returns a supervisor in the Starting state.
func New(cfg Config) (*Supervisor, error) {
	if len(cfg.Tool) == 0 || cfg.Tool[0] == "" {
		return nil, errors.New("supervisor: empty tool command")
	}
	if cfg.WatchExt == "" {
		return nil, errors.New("supervisor: empty watch extension")
	}
	cfg = cfg.withDefaults()
	recordState(StateStarting)
	return &Supervisor{
		cfg:        cfg,
		log:        cfg.Logger,
		pub:        cfg.Publisher,
		filter:     watch.MatchExt(cfg.WatchExt),
		term:       &guardedTerminal{t: cfg.Terminal},
		state:      StateStarting,
		outputDone: make(chan struct{}),
	}, nil
}

// Run starts the child and supervises it until the child exits, a SIGINT or
// SIGTERM arrives, or ctx is canceled. It always tears down before returning
// and yields the process exit code: the child's own code if it exited first,
// 0 for a requested shutdown, 1 if startup failed.
func (s *Supervisor) Run(ctx context.Context) int {
	sigCh := s.cfg.Signals
	if sigCh == nil {
		ch := make(chan os.Signal, 2)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(ch)
		sigCh = ch
	}
	if err := s.start(); err != nil {
		if IsSpawnError(err) {
			s.log.Error().Err(err).Str("tool", s.cfg.Tool[0]).Msg("could not start the tool, check the tool setting")
		} else {
			s.log.Error().Err(err).Msg("startup failed")
		}
		_ = s.Teardown()
		return 1
	}
	code := s.loop(ctx, sigCh)
	_ = s.Teardown()
	return code
}

func (s *Supervisor) start() error {
	root := s.cfg.WatchRoot
	w, err := s.cfg.NewWatcher(root)
	if err != nil {
		return fmt.Errorf("watch %s: %w", root, err)
	}
	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()

	name, args := s.cfg.command()
	s.log.Info().Str("cmd", commandLine(name, args)).Msg("starting child process")
	s.pub.Publish(Event{Name: EventSpawnStart, Fields: map[string]any{"cmd": commandLine(name, args)}})
	child, err := s.cfg.Spawn(name, args, s.cfg.Stderr)
	if err != nil {
		s.pub.Publish(Event{Name: EventSpawnFailed, Fields: map[string]any{"error": err.Error()}})
		return err
	}

	detector := NewDetector(s.cfg.ReadyMarkers, s.cfg.Stdout, s.onReady)
	dispatcher := NewDispatcher(child, child.Stdin(), detector, s.cfg.ReloadCommand, s.log, s.pub)
	gate := NewGate(s.cfg.Debounce, func(path string) { _ = dispatcher.Dispatch(path) })

	s.mu.Lock()
	s.child = child
	s.detector = detector
	s.dispatcher = dispatcher
	s.gate = gate
	s.startedAt = time.Now()
	s.state = StateRunning
	s.mu.Unlock()
	recordState(StateRunning)

	go func() {
		defer close(s.outputDone)
		out := child.Stdout()
		detector.Run(out)
		if c, ok := out.(io.Closer); ok {
			_ = c.Close()
		}
	}()
	if s.cfg.Stdin != nil {
		relay := NewRelay(s.cfg.Stdin, child.Stdin(), s.term, s.cfg.Signal, s.log)
		go relay.Run()
	}

	s.log.Info().Int("pid", child.Pid()).Msg("child process started")
	s.log.Info().
		Str("root", root).
		Str("ext", s.cfg.WatchExt).
		Dur("debounce", s.cfg.Debounce).
		Msgf("watching %s files", s.cfg.WatchExt)
	s.log.Info().Msg("waiting for the child to become ready for hot reload")
	return nil
}

func (s *Supervisor) loop(ctx context.Context, sigCh <-chan os.Signal) int {
	events, errs := s.watcher.Events(), s.watcher.Errors()
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("context canceled, shutting down")
			return 0
		case sig := <-sigCh:
			s.log.Info().Str("signal", sig.String()).Msg("shutdown requested")
			return 0
		case <-s.child.Done():
			code := s.child.ExitCode()
			s.waitOutput()
			s.log.Warn().Int("code", code).Msg("child process exited")
			s.pub.Publish(Event{Name: EventChildExit, Fields: map[string]any{"code": code}})
			return code
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.handleChange(ev)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (s *Supervisor) handleChange(ev watch.Event) {
	path := s.relPath(ev.Path)
	if !s.filter(ev) {
		watchEventsTotal.WithLabelValues("ignored").Inc()
		s.log.Debug().Str("kind", ev.Kind.String()).Str("path", path).Msg("change ignored")
		return
	}
	watchEventsTotal.WithLabelValues("matched").Inc()
	s.log.Info().Str("kind", ev.Kind.String()).Str("path", path).Msg("change")
	s.gate.Submit(path)
}

func (s *Supervisor) relPath(p string) string {
	if s.cfg.WatchRoot == "" || !filepath.IsAbs(p) {
		return p
	}
	if rel, err := filepath.Rel(s.cfg.WatchRoot, p); err == nil {
		return rel
	}
	return p
}

func (s *Supervisor) onReady() {
	childReady.Set(1)
	s.log.Info().Msg("✓ ready for hot reload")
	s.pub.Publish(Event{Name: EventReady})
}

func (s *Supervisor) waitOutput() {
	select {
	case <-s.outputDone:
	case <-time.After(outputDrain):
	}
}

// Teardown closes the watcher, cancels the pending reload, restores the
// terminal and terminates the child if it is still alive. Only the first call
// does anything; every step runs even if an earlier one fails.
func (s *Supervisor) Teardown() error {
	s.teardownOnce.Do(func() {
		s.setState(StateShuttingDown)
		s.pub.Publish(Event{Name: EventShutdownStart})
		s.log.Info().Msg("shutting down")

		s.mu.RLock()
		w, gate, child := s.watcher, s.gate, s.child
		s.mu.RUnlock()

		var errs []error
		step := func(name string, fn func() error) {
			defer func() {
				if r := recover(); r != nil {
					errs = append(errs, fmt.Errorf("%s: panic: %v", name, r))
				}
			}()
			if err := fn(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}
		step("close watcher", func() error {
			if w == nil {
				return nil
			}
			return w.Close()
		})
		step("cancel reload", func() error {
			if gate != nil && gate.Stop() {
				s.pub.Publish(Event{Name: EventReloadCancel})
			}
			return nil
		})
		step("restore terminal", s.term.release)
		step("stop child", func() error {
			if child == nil || !child.Alive() {
				return nil
			}
			s.log.Info().Int("pid", child.Pid()).Msg("stopping child process")
			return child.Terminate(s.cfg.StopGrace)
		})

		s.teardownErr = errors.Join(errs...)
		if s.teardownErr != nil {
			s.log.Warn().Err(s.teardownErr).Msg("teardown finished with errors")
		}
		childReady.Set(0)
		s.setState(StateTerminated)
		s.pub.Publish(Event{Name: EventShutdownDone})
	})
	return s.teardownErr
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	recordState(st)
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Ready reports whether the child announced readiness.
func (s *Supervisor) Ready() bool {
	s.mu.RLock()
	d := s.detector
	s.mu.RUnlock()
	return d != nil && d.Ready()
}

// Reload dispatches a reload immediately, bypassing the debounce window but
// not the readiness checks.
func (s *Supervisor) Reload(reason string) error {
	s.mu.RLock()
	d, st := s.dispatcher, s.state
	s.mu.RUnlock()
	if d == nil || st != StateRunning {
		return ErrChildExited
	}
	if reason == "" {
		reason = "manual"
	}
	return d.Dispatch(reason)
}

// Status is a snapshot for the status API.
func (s *Supervisor) Status() types.StatusResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := types.StatusResponse{
		State:     string(s.state),
		WatchRoot: s.cfg.WatchRoot,
		WatchExt:  s.cfg.WatchExt,
	}
	if s.child != nil {
		st.PID = s.child.Pid()
		st.Alive = s.child.Alive()
	}
	if s.detector != nil {
		st.Ready = s.detector.Ready()
	}
	if s.dispatcher != nil {
		st.Reloads = s.dispatcher.Count()
		path, at := s.dispatcher.Last()
		st.LastReloadPath = path
		if !at.IsZero() {
			t := at
			st.LastReloadAt = &t
		}
	}
	if !s.startedAt.IsZero() {
		t := s.startedAt
		st.StartedAt = &t
	}
	return st
}

// guardedTerminal refuses to re-enter raw mode once teardown released it.
type guardedTerminal struct {
	t        Terminal
	mu       sync.Mutex
	released bool
}

var errTerminalReleased = errors.New("terminal released")

func (g *guardedTerminal) MakeRaw() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.released {
		return errTerminalReleased
	}
	return g.t.MakeRaw()
}

func (g *guardedTerminal) Restore() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.t.Restore()
}

func (g *guardedTerminal) release() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.released = true
	return g.t.Restore()
}
