package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Defaults applied when the corresponding Config fields are unset.
const (
	DefaultSubcommand    = "run"
	DefaultWatchExt      = ".dart"
	DefaultWatchBackend  = "fsnotify"
	DefaultDebounceMS    = 300
	DefaultReloadCommand = "r"
	DefaultStopGraceMS   = 2000
	DefaultLogLevel      = "info"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvConfig     = "FLUTTERWATCH_CONFIG"
	EnvLogLevel   = "FLUTTERWATCH_LOG_LEVEL"
	EnvStatusAddr = "FLUTTERWATCH_STATUS_ADDR"
)

var (
	// DefaultTool is the command prefix the supervised tool is launched with.
	DefaultTool = []string{"flutter"}
	// DefaultReadyMarkers are the phrases flutter prints once hot reload is available.
	DefaultReadyMarkers = []string{"Flutter run key commands", "The Flutter DevTools"}
	// DefaultIgnoreDirs are directory names never descended into by the watcher.
	DefaultIgnoreDirs = []string{".git", ".dart_tool"}
)

// Config holds runtime parameters for the watcher.
// Zero values mean "unspecified"; Default and Merge fill them in.
type Config struct {
	Tool          []string `json:"tool" yaml:"tool" toml:"tool"`
	Subcommand    string   `json:"subcommand" yaml:"subcommand" toml:"subcommand"`
	WatchPath     string   `json:"watch_path" yaml:"watch_path" toml:"watch_path"`
	WatchExt      string   `json:"watch_ext" yaml:"watch_ext" toml:"watch_ext"`
	WatchBackend  string   `json:"watch_backend" yaml:"watch_backend" toml:"watch_backend"`
	IgnoreDirs    []string `json:"ignore_dirs" yaml:"ignore_dirs" toml:"ignore_dirs"`
	DebounceMS    int      `json:"debounce_ms" yaml:"debounce_ms" toml:"debounce_ms"`
	ReadyMarkers  []string `json:"ready_markers" yaml:"ready_markers" toml:"ready_markers"`
	ReloadCommand string   `json:"reload_command" yaml:"reload_command" toml:"reload_command"`
	StopGraceMS   int      `json:"stop_grace_ms" yaml:"stop_grace_ms" toml:"stop_grace_ms"`
	StatusAddr    string   `json:"status_addr" yaml:"status_addr" toml:"status_addr"`
	CORSOrigins   []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	LogLevel      string   `json:"log_level" yaml:"log_level" toml:"log_level"`

	// StatusMaxBodyBytes caps POST /reload bodies; 0 keeps the server default.
	StatusMaxBodyBytes int64 `json:"status_max_body_bytes" yaml:"status_max_body_bytes" toml:"status_max_body_bytes"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Tool:          append([]string(nil), DefaultTool...),
		Subcommand:    DefaultSubcommand,
		WatchExt:      DefaultWatchExt,
		WatchBackend:  DefaultWatchBackend,
		IgnoreDirs:    append([]string(nil), DefaultIgnoreDirs...),
		DebounceMS:    DefaultDebounceMS,
		ReadyMarkers:  append([]string(nil), DefaultReadyMarkers...),
		ReloadCommand: DefaultReloadCommand,
		StopGraceMS:   DefaultStopGraceMS,
		LogLevel:      DefaultLogLevel,
	}
}

// Merge returns c with every non-zero field of o laid over it.
func (c Config) Merge(o Config) Config {
	if len(o.Tool) > 0 {
		c.Tool = append([]string(nil), o.Tool...)
	}
	if o.Subcommand != "" {
		c.Subcommand = o.Subcommand
	}
	if o.WatchPath != "" {
		c.WatchPath = o.WatchPath
	}
	if o.WatchExt != "" {
		c.WatchExt = o.WatchExt
	}
	if o.WatchBackend != "" {
		c.WatchBackend = o.WatchBackend
	}
	if o.IgnoreDirs != nil {
		c.IgnoreDirs = append([]string(nil), o.IgnoreDirs...)
	}
	if o.DebounceMS != 0 {
		c.DebounceMS = o.DebounceMS
	}
	if len(o.ReadyMarkers) > 0 {
		c.ReadyMarkers = append([]string(nil), o.ReadyMarkers...)
	}
	if o.ReloadCommand != "" {
		c.ReloadCommand = o.ReloadCommand
	}
	if o.StopGraceMS != 0 {
		c.StopGraceMS = o.StopGraceMS
	}
	if o.StatusAddr != "" {
		c.StatusAddr = o.StatusAddr
	}
	if len(o.CORSOrigins) > 0 {
		c.CORSOrigins = append([]string(nil), o.CORSOrigins...)
	}
	if o.StatusMaxBodyBytes != 0 {
		c.StatusMaxBodyBytes = o.StatusMaxBodyBytes
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	return c
}

// ApplyEnv overlays the FLUTTERWATCH_* environment variables.
func (c Config) ApplyEnv() Config {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStatusAddr)); v != "" {
		c.StatusAddr = v
	}
	return c
}

// Debounce is the debounce window as a duration.
func (c Config) Debounce() time.Duration { return time.Duration(c.DebounceMS) * time.Millisecond }

// StopGrace is how long a terminated child gets before it is killed.
func (c Config) StopGrace() time.Duration { return time.Duration(c.StopGraceMS) * time.Millisecond }

// Validate reports the first unusable setting.
func (c Config) Validate() error {
	if len(c.Tool) == 0 || strings.TrimSpace(c.Tool[0]) == "" {
		return errors.New("tool must name an executable")
	}
	if strings.TrimSpace(c.WatchExt) == "" {
		return errors.New("watch_ext is empty")
	}
	if c.DebounceMS <= 0 {
		return fmt.Errorf("debounce_ms must be positive, got %d", c.DebounceMS)
	}
	if c.StopGraceMS < 0 {
		return fmt.Errorf("stop_grace_ms must not be negative, got %d", c.StopGraceMS)
	}
	if c.StatusMaxBodyBytes < 0 {
		return fmt.Errorf("status_max_body_bytes must not be negative, got %d", c.StatusMaxBodyBytes)
	}
	if len(c.ReadyMarkers) == 0 {
		return errors.New("ready_markers is empty")
	}
	for _, m := range c.ReadyMarkers {
		if m == "" {
			return errors.New("ready_markers contains an empty marker")
		}
	}
	if c.ReloadCommand == "" {
		return errors.New("reload_command is empty")
	}
	switch c.WatchBackend {
	case "fsnotify", "notify":
	default:
		return fmt.Errorf("unknown watch_backend %q (want fsnotify|notify)", c.WatchBackend)
	}
	return nil
}
