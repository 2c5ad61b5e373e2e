package cli

import (
	"bytes"
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"flutterwatch/internal/config"
	"flutterwatch/internal/supervisor"
)

type captured struct {
	cfg    supervisor.Config
	status statusOptions
	calls  int
}

func stubSupervisor(t *testing.T, code int) *captured {
	t.Helper()
	c := &captured{}
	old := runSupervisor
	runSupervisor = func(_ context.Context, cfg supervisor.Config, st statusOptions) int {
		c.cfg, c.status = cfg, st
		c.calls++
		return code
	}
	t.Cleanup(func() { runSupervisor = old })
	t.Setenv(config.EnvConfig, "")
	t.Setenv(config.EnvLogLevel, "")
	t.Setenv(config.EnvStatusAddr, "")
	return c
}

func run(args ...string) (int, string, string) {
	var out, errb bytes.Buffer
	code := mainWith(args, nil, &out, &errb)
	return code, out.String(), errb.String()
}

func TestMainForwardsUnknownArgs(t *testing.T) {
	c := stubSupervisor(t, 0)
	dir := t.TempDir()
	code, _, stderr := run("-p", dir, "-d", "linux", "--flavor=dev", "--debounce", "150ms", "--", "--tool", "x")
	if code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, stderr)
	}
	if c.calls != 1 {
		t.Fatalf("supervisor ran %d times", c.calls)
	}
	if want := []string{"-d", "linux", "--flavor=dev", "--tool", "x"}; !reflect.DeepEqual(c.cfg.Args, want) {
		t.Fatalf("args=%q want %q", c.cfg.Args, want)
	}
	if c.cfg.WatchRoot != dir {
		t.Fatalf("watch root=%q want %q", c.cfg.WatchRoot, dir)
	}
	if c.cfg.Debounce != 150*time.Millisecond {
		t.Fatalf("debounce=%v", c.cfg.Debounce)
	}
	if !reflect.DeepEqual(c.cfg.Tool, config.DefaultTool) || c.cfg.Subcommand != "run" {
		t.Fatalf("tool=%q subcommand=%q", c.cfg.Tool, c.cfg.Subcommand)
	}
	if c.cfg.Stdin != nil || c.cfg.Terminal != nil {
		t.Fatalf("no stdin given, relay must stay off")
	}
}

func TestMainPropagatesSupervisorExitCode(t *testing.T) {
	stubSupervisor(t, 7)
	if code, _, _ := run("-p", t.TempDir()); code != 7 {
		t.Fatalf("exit=%d want 7", code)
	}
}

func TestMainPassesStatusOptions(t *testing.T) {
	c := stubSupervisor(t, 0)
	if code, _, stderr := run("-p", t.TempDir(), "--status-addr", "127.0.0.1:0"); code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, stderr)
	}
	if c.status.addr != "127.0.0.1:0" {
		t.Fatalf("status addr=%q", c.status.addr)
	}
}

func TestMainPassesStatusBodyCapFromConfig(t *testing.T) {
	c := stubSupervisor(t, 0)
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "fw.yaml", "status_addr: 127.0.0.1:0\nstatus_max_body_bytes: 512\ncors_origins: [\"http://localhost:3000\"]\n")
	if code, _, stderr := run("-c", cfgPath, "-p", dir); code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, stderr)
	}
	if c.status.maxBodyBytes != 512 {
		t.Fatalf("max body bytes=%d want 512", c.status.maxBodyBytes)
	}
	if !reflect.DeepEqual(c.status.corsOrigins, []string{"http://localhost:3000"}) {
		t.Fatalf("cors origins=%q", c.status.corsOrigins)
	}
}

func TestMainHelp(t *testing.T) {
	c := stubSupervisor(t, 0)
	code, stdout, _ := run("--help")
	if code != 0 {
		t.Fatalf("exit=%d", code)
	}
	if c.calls != 0 {
		t.Fatalf("--help must not start the supervisor")
	}
	if !strings.Contains(stdout, "--debounce") || !strings.Contains(stdout, "watch") {
		t.Fatalf("help output missing flags or subcommands: %q", stdout)
	}
}

func TestMainHelpAfterDoubleDashIsForwarded(t *testing.T) {
	c := stubSupervisor(t, 0)
	if !strings.Contains(helpUsage(t), "-- -h") {
		t.Fatalf("help flag usage should mention the -- escape")
	}
	if code, _, stderr := run("-p", t.TempDir(), "--", "-h"); code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, stderr)
	}
	if c.calls != 1 || !reflect.DeepEqual(c.cfg.Args, []string{"-h"}) {
		t.Fatalf("calls=%d args=%q", c.calls, c.cfg.Args)
	}
}

func helpUsage(t *testing.T) string {
	t.Helper()
	f := buildRootCmd(&app{}).Flags().Lookup("help")
	if f == nil {
		t.Fatalf("no help flag")
	}
	return f.Usage
}

func TestMainJoinedShortPath(t *testing.T) {
	c := stubSupervisor(t, 0)
	dir := t.TempDir()
	if code, _, stderr := run("-p"+dir, "-d", "linux"); code != 0 {
		t.Fatalf("exit=%d stderr=%s", code, stderr)
	}
	if c.cfg.WatchRoot != dir {
		t.Fatalf("watch root=%q want %q", c.cfg.WatchRoot, dir)
	}
	if !reflect.DeepEqual(c.cfg.Args, []string{"-d", "linux"}) {
		t.Fatalf("args=%q", c.cfg.Args)
	}
}

func TestMainBadWatchPath(t *testing.T) {
	c := stubSupervisor(t, 0)
	code, _, _ := run("-p", "/nonexistent/flutterwatch/project")
	if code != 1 {
		t.Fatalf("exit=%d want 1", code)
	}
	if c.calls != 0 {
		t.Fatalf("supervisor must not start without a watch root")
	}
}

func TestMainInvalidConfig(t *testing.T) {
	stubSupervisor(t, 0)
	code, _, stderr := run("--watch-backend", "inotify")
	if code != 1 {
		t.Fatalf("exit=%d want 1", code)
	}
	if !strings.Contains(stderr, "watch_backend") {
		t.Fatalf("stderr=%q", stderr)
	}
}

func TestMainMissingFlagValue(t *testing.T) {
	stubSupervisor(t, 0)
	if code, _, _ := run("-d", "linux", "--path"); code != 1 {
		t.Fatalf("exit=%d want 1", code)
	}
}

func TestMainCompletion(t *testing.T) {
	stubSupervisor(t, 0)
	code, stdout, _ := run("completion", "bash")
	if code != 0 {
		t.Fatalf("exit=%d", code)
	}
	if !strings.Contains(stdout, "flutterwatch") {
		t.Fatalf("completion script missing command name")
	}
}
