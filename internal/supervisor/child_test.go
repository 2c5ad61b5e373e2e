package supervisor

import (
	"io"
	"os"
	"strings"
	"testing"
	"time"
)

func TestStartChildMissingBinary(t *testing.T) {
	_, err := StartChild("/nonexistent/flutterwatch-tool", []string{"run"}, io.Discard)
	if err == nil {
		t.Fatalf("expected spawn error")
	}
	if !IsSpawnError(err) {
		t.Fatalf("expected IsSpawnError, got %T %v", err, err)
	}
	if !strings.Contains(err.Error(), "/nonexistent/flutterwatch-tool run") {
		t.Fatalf("error should name the command line: %v", err)
	}
}

func TestChildExitCode(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := buildFakeTool(t)
	p, err := StartChild(bin, []string{"run", "-no-ready", "-exit-after=50ms", "-exit-code=7"}, io.Discard)
	if err != nil {
		t.Fatalf("StartChild: %v", err)
	}
	go func() { _, _ = io.Copy(io.Discard, p.Stdout()) }()
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("child did not exit")
	}
	if p.Alive() {
		t.Fatalf("child still alive after Done")
	}
	if p.ExitCode() != 7 {
		t.Fatalf("exit code=%d want 7", p.ExitCode())
	}
	if p.Stdin().Open() {
		t.Fatalf("stdin should be closed once the child exits")
	}
}

func TestChildTerminateGraceful(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := buildFakeTool(t)
	p, err := StartChild(bin, []string{"run"}, io.Discard)
	if err != nil {
		t.Fatalf("StartChild: %v", err)
	}
	go func() { _, _ = io.Copy(io.Discard, p.Stdout()) }()
	time.Sleep(50 * time.Millisecond)
	if err := p.Terminate(2 * time.Second); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if p.Alive() {
		t.Fatalf("child alive after Terminate")
	}
	if err := p.Terminate(time.Second); err != nil {
		t.Fatalf("second Terminate: %v", err)
	}
}

func TestChildTerminateEscalatesToKill(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := buildFakeTool(t)
	p, err := StartChild(bin, []string{"run", "-ignore-term"}, io.Discard)
	if err != nil {
		t.Fatalf("StartChild: %v", err)
	}
	go func() { _, _ = io.Copy(io.Discard, p.Stdout()) }()
	time.Sleep(100 * time.Millisecond)
	start := time.Now()
	if err := p.Terminate(150 * time.Millisecond); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if time.Since(start) < 150*time.Millisecond {
		t.Fatalf("SIGKILL sent before the grace period")
	}
	if p.Alive() {
		t.Fatalf("child alive after SIGKILL")
	}
	if p.ExitCode() != 0 {
		t.Fatalf("exit code=%d, a killed child maps to 0", p.ExitCode())
	}
}

func TestExitCodeOfWithoutState(t *testing.T) {
	if got := exitCodeOf(nil, nil); got != 0 {
		t.Fatalf("exitCodeOf(nil,nil)=%d", got)
	}
	if got := exitCodeOf(nil, os.ErrProcessDone); got != 1 {
		t.Fatalf("exitCodeOf(nil,err)=%d", got)
	}
}

func TestCommandLine(t *testing.T) {
	if got := commandLine("flutter", nil); got != "flutter" {
		t.Fatalf("got %q", got)
	}
	if got := commandLine("puro", []string{"flutter", "run", "-d", "linux"}); got != "puro flutter run -d linux" {
		t.Fatalf("got %q", got)
	}
}
