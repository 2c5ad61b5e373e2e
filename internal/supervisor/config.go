package supervisor

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"flutterwatch/internal/config"
	"flutterwatch/internal/watch"
)

// Defaults applied when corresponding Config fields are unset; they come from
// the config package so the CLI and the supervisor agree.
const (
	defaultSubcommand    = config.DefaultSubcommand
	defaultDebounce      = time.Duration(config.DefaultDebounceMS) * time.Millisecond
	defaultStopGrace     = time.Duration(config.DefaultStopGraceMS) * time.Millisecond
	defaultReloadCommand = config.DefaultReloadCommand
	// outputDrain bounds how long Run waits for the last child output after exit.
	outputDrain = 500 * time.Millisecond
)

// WatcherFactory opens the directory watch for root.
type WatcherFactory func(root string) (watch.Watcher, error)

// Config encapsulates all tunables for Supervisor construction.
type Config struct {
	// Tool is the command prefix, e.g. ["flutter"] or ["puro", "flutter"].
	Tool       []string
	Subcommand string
	// Args are forwarded verbatim after Subcommand.
	Args []string

	WatchRoot     string
	WatchExt      string
	Debounce      time.Duration
	ReadyMarkers  []string
	ReloadCommand string
	StopGrace     time.Duration

	Stdout   io.Writer
	Stderr   io.Writer
	Stdin    io.Reader
	Terminal Terminal

	NewWatcher WatcherFactory
	Spawn      SpawnFunc
	Signal     SignalFunc
	// Signals, when set, replaces the os/signal subscription for SIGINT/SIGTERM.
	Signals <-chan os.Signal

	Logger    zerolog.Logger
	Publisher EventPublisher
}

func (c Config) withDefaults() Config {
	if c.Subcommand == "" {
		c.Subcommand = defaultSubcommand
	}
	if c.Debounce <= 0 {
		c.Debounce = defaultDebounce
	}
	if c.StopGrace <= 0 {
		c.StopGrace = defaultStopGrace
	}
	if c.ReloadCommand == "" {
		c.ReloadCommand = defaultReloadCommand
	}
	if len(c.ReadyMarkers) == 0 {
		c.ReadyMarkers = append([]string(nil), config.DefaultReadyMarkers...)
	}
	if c.Stdout == nil {
		c.Stdout = os.Stdout
	}
	if c.Stderr == nil {
		c.Stderr = os.Stderr
	}
	if c.Terminal == nil {
		c.Terminal = noTerminal{}
	}
	if c.NewWatcher == nil {
		c.NewWatcher = func(root string) (watch.Watcher, error) {
			return watch.New(root, watch.Options{})
		}
	}
	if c.Spawn == nil {
		c.Spawn = StartChild
	}
	if c.Signal == nil {
		c.Signal = SignalSelf
	}
	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}
	return c
}

// command returns the executable and its argument list.
func (c Config) command() (string, []string) {
	args := make([]string, 0, len(c.Tool)+1+len(c.Args))
	args = append(args, c.Tool[1:]...)
	if c.Subcommand != "" {
		args = append(args, c.Subcommand)
	}
	args = append(args, c.Args...)
	return c.Tool[0], args
}
