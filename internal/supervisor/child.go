package supervisor

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Process is the supervised child as seen by the rest of the package.
type Process interface {
	Pid() int
	Alive() bool
	Done() <-chan struct{}
	// ExitCode is valid once Done is closed.
	ExitCode() int
	Stdin() *Input
	Stdout() io.Reader
	Terminate(grace time.Duration) error
}

// SpawnFunc starts a child. StartChild is the default.
type SpawnFunc func(name string, args []string, stderr io.Writer) (Process, error)

// Child is a process started by StartChild. It runs in its own process group
// so that termination reaches any helpers it spawned.
type Child struct {
	cmd    *exec.Cmd
	stdin  *Input
	stdout *os.File

	alive    atomic.Bool
	done     chan struct{}
	exitCode int

	termMu sync.Mutex
}

// StartChild spawns name with args. Stdout is a pipe owned by the caller
// (reads are not cut short by Wait), stdin is a pipe, stderr goes to stderr.
func StartChild(name string, args []string, stderr io.Writer) (Process, error) {
	cmd := exec.Command(name, args...)
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, spawnError{cmd: name, err: err}
	}
	cmd.Stdout = pw
	stdin, err := cmd.StdinPipe()
	if err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, spawnError{cmd: name, err: err}
	}
	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return nil, spawnError{cmd: commandLine(name, args), err: err}
	}
	// The child holds its own copy of the write end.
	_ = pw.Close()

	c := &Child{
		cmd:    cmd,
		stdin:  NewInput(stdin),
		stdout: pr,
		done:   make(chan struct{}),
	}
	c.alive.Store(true)
	go c.wait()
	return c, nil
}

func (c *Child) wait() {
	err := c.cmd.Wait()
	c.exitCode = exitCodeOf(c.cmd.ProcessState, err)
	c.alive.Store(false)
	_ = c.stdin.Close()
	close(c.done)
}

// exitCodeOf maps a finished process to the code flutterwatch exits with. A
// child killed by a signal has no exit code of its own and maps to 0.
func exitCodeOf(ps *os.ProcessState, err error) int {
	if ps == nil {
		if err != nil {
			return 1
		}
		return 0
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 0
	}
	if code := ps.ExitCode(); code >= 0 {
		return code
	}
	return 1
}

func (c *Child) Pid() int {
	if c.cmd.Process == nil {
		return 0
	}
	return c.cmd.Process.Pid
}

func (c *Child) Alive() bool { return c.alive.Load() }

func (c *Child) Done() <-chan struct{} { return c.done }

func (c *Child) ExitCode() int {
	select {
	case <-c.done:
		return c.exitCode
	default:
		return -1
	}
}

func (c *Child) Stdin() *Input { return c.stdin }

func (c *Child) Stdout() io.Reader { return c.stdout }

// Terminate sends SIGTERM to the child's process group and escalates to
// SIGKILL after grace. It returns once the child has been reaped.
func (c *Child) Terminate(grace time.Duration) error {
	c.termMu.Lock()
	defer c.termMu.Unlock()
	if !c.Alive() {
		return nil
	}
	if err := c.signalGroup(unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
	}
	if err := c.signalGroup(unix.SIGKILL); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	<-c.done
	return nil
}

func (c *Child) signalGroup(sig syscall.Signal) error {
	pid := c.Pid()
	if pid <= 0 {
		return nil
	}
	if err := unix.Kill(-pid, sig); err != nil {
		// Fall back to the leader alone if the group is already gone.
		return unix.Kill(pid, sig)
	}
	return nil
}

func commandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
