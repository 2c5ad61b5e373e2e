package cli

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"flutterwatch/internal/common/fsutil"
	"flutterwatch/internal/config"
)

// addCommonFlags registers the flags shared by the root and watch commands.
func addCommonFlags(fs *pflag.FlagSet) {
	fs.StringP("path", "p", "", "Directory to watch (default: current directory)")
	fs.StringP("config", "c", "", "Config file (.yaml, .yml, .json, .toml); defaults to $"+config.EnvConfig)
	fs.String("log-level", "", "Log level: debug|info|warn|error (defaults $"+config.EnvLogLevel+" or info)")
	fs.String("watch-backend", "", "Watch backend: fsnotify|notify")
}

// addRunFlags registers the flags only the supervising root command uses.
func addRunFlags(fs *pflag.FlagSet) {
	fs.Duration("debounce", 0, "Quiet period before a reload, e.g. 300ms")
	fs.String("tool", "", `Tool command prefix, e.g. "puro flutter"`)
	fs.String("status-addr", "", "Listen address for the status API (empty disables; defaults $"+config.EnvStatusAddr+")")
}

// loadConfig resolves defaults < config file < environment < flags.
func loadConfig(fs *pflag.FlagSet) (config.Config, error) {
	path, _ := fs.GetString("config")
	if path == "" {
		path = strings.TrimSpace(os.Getenv(config.EnvConfig))
	}
	cfg := config.Default()
	if path != "" {
		p, err := fsutil.ExpandHome(path)
		if err != nil {
			return config.Config{}, err
		}
		if cfg, err = config.LoadWithDefaults(p); err != nil {
			return config.Config{}, err
		}
	}
	cfg = cfg.ApplyEnv()

	if v, ok := changedString(fs, "path"); ok {
		cfg.WatchPath = v
	}
	if v, ok := changedString(fs, "log-level"); ok {
		cfg.LogLevel = v
	}
	if v, ok := changedString(fs, "watch-backend"); ok {
		cfg.WatchBackend = v
	}
	if v, ok := changedString(fs, "tool"); ok {
		cfg.Tool = strings.Fields(v)
	}
	if v, ok := changedString(fs, "status-addr"); ok {
		cfg.StatusAddr = v
	}
	if fs.Lookup("debounce") != nil && fs.Changed("debounce") {
		d, err := fs.GetDuration("debounce")
		if err != nil {
			return config.Config{}, err
		}
		cfg.DebounceMS = int(d / time.Millisecond)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func changedString(fs *pflag.FlagSet, name string) (string, bool) {
	if fs.Lookup(name) == nil || !fs.Changed(name) {
		return "", false
	}
	v, err := fs.GetString(name)
	if err != nil {
		return "", false
	}
	return v, true
}
