package supervisor

import (
	"bytes"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"flutterwatch/internal/watch"
)

// buildFakeTool builds testdata/fake_tool.go and returns its path.
func buildFakeTool(t *testing.T) string {
	t.Helper()
	tdir := t.TempDir()
	bin := filepath.Join(tdir, "fake_tool")
	cmd := exec.Command("go", "build", "-o", bin, "./testdata/fake_tool.go")
	cmd.Dir = "."
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build fake tool: %v: %s", err, string(out))
	}
	return bin
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }
func (failWriter) Close() error              { return nil }

// fakeProc is an in-memory Process.
type fakeProc struct {
	alive      atomic.Bool
	done       chan struct{}
	code       int
	stdin      *Input
	in         *syncBuffer
	outR       *io.PipeReader
	outW       *io.PipeWriter
	terminated atomic.Int32
	once       sync.Once
}

func newFakeProc() *fakeProc {
	in := &syncBuffer{}
	r, w := io.Pipe()
	p := &fakeProc{
		done:  make(chan struct{}),
		in:    in,
		stdin: NewInput(nopWriteCloser{in}),
		outR:  r,
		outW:  w,
	}
	p.alive.Store(true)
	return p
}

func (p *fakeProc) exit(code int) {
	p.once.Do(func() {
		p.code = code
		p.alive.Store(false)
		_ = p.stdin.Close()
		_ = p.outW.Close()
		close(p.done)
	})
}

func (p *fakeProc) Pid() int              { return 4242 }
func (p *fakeProc) Alive() bool           { return p.alive.Load() }
func (p *fakeProc) Done() <-chan struct{} { return p.done }
func (p *fakeProc) ExitCode() int         { return p.code }
func (p *fakeProc) Stdin() *Input         { return p.stdin }
func (p *fakeProc) Stdout() io.Reader     { return p.outR }

func (p *fakeProc) Terminate(time.Duration) error {
	p.terminated.Add(1)
	p.exit(0)
	return nil
}

// fakeWatcher lets tests inject change events.
type fakeWatcher struct {
	events chan watch.Event
	errs   chan error
	closed atomic.Int32
}

func newFakeWatcher() *fakeWatcher {
	return &fakeWatcher{events: make(chan watch.Event, 16), errs: make(chan error, 1)}
}

func (w *fakeWatcher) Events() <-chan watch.Event { return w.events }
func (w *fakeWatcher) Errors() <-chan error       { return w.errs }

func (w *fakeWatcher) Close() error {
	w.closed.Add(1)
	return nil
}

// fakeTerminal records raw mode transitions.
type fakeTerminal struct {
	mu       sync.Mutex
	raw      bool
	raws     int
	restores int
}

func (f *fakeTerminal) MakeRaw() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw = true
	f.raws++
	return nil
}

func (f *fakeTerminal) Restore() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw = false
	f.restores++
	return nil
}

func (f *fakeTerminal) snapshot() (raw bool, raws, restores int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.raw, f.raws, f.restores
}
