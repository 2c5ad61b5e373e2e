// Package cli wires configuration, logging, the supervisor and the status API
// behind the flutterwatch command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"flutterwatch/internal/common/fsutil"
	"flutterwatch/internal/config"
	"flutterwatch/internal/httpapi"
	"flutterwatch/internal/logging"
	"flutterwatch/internal/supervisor"
	"flutterwatch/internal/watch"
)

// statusOptions configures the optional status API.
type statusOptions struct {
	addr         string
	corsOrigins  []string
	maxBodyBytes int64
}

// Swappable for tests.
var (
	runSupervisor = func(ctx context.Context, cfg supervisor.Config, st statusOptions) int {
		s, err := supervisor.New(cfg)
		if err != nil {
			cfg.Logger.Error().Err(err).Msg("invalid supervisor configuration")
			return 1
		}
		return runWithStatus(ctx, s, st, cfg.Logger)
	}
	serveStatus = httpapi.Serve
)

// app carries the process streams and the exit code chosen by a command.
type app struct {
	stdin  *os.File
	stdout io.Writer
	stderr io.Writer
	code   int
}

// buildRootCmd constructs the command tree.
func buildRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "flutterwatch [flags] [flutter run args...]",
		Short: "Run flutter with hot reload on file save",
		Long: "flutterwatch starts `flutter run`, watches the project for source changes and\n" +
			"sends a hot reload once the app is ready. Flags it does not know are passed\n" +
			"to the tool unchanged; use -- to pass a flag that flutterwatch also defines.",
		Example:            "  flutterwatch -d linux\n  flutterwatch --tool \"puro flutter\" -p ~/src/app -- --flavor dev",
		SilenceUsage:       true,
		SilenceErrors:      true,
		DisableFlagParsing: true,
		Args:               cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := cmd.Flags()
			consumed, forwarded, err := splitArgs(fs, args)
			if err != nil {
				return err
			}
			if err := fs.Parse(consumed); err != nil {
				return err
			}
			if help, _ := fs.GetBool("help"); help {
				return cmd.Help()
			}
			cfg, err := loadConfig(fs)
			if err != nil {
				return err
			}
			a.code = runRoot(cmd.Context(), a, cfg, forwarded)
			return nil
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	addCommonFlags(root.Flags())
	addRunFlags(root.Flags())
	root.Flags().BoolP("help", "h", false, "help for flutterwatch (pass -- -h for the tool's own help)")

	root.AddCommand(buildWatchCmd(a))

	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(a.stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(a.stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(a.stdout, true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenPowerShellCompletionWithDesc(a.stdout) }})
	root.AddCommand(completionCmd)

	return root
}

// runRoot builds the supervisor configuration and runs it to completion.
func runRoot(ctx context.Context, a *app, cfg config.Config, forwarded []string) int {
	log := logging.New(cfg.LogLevel, a.stderr)
	root, err := fsutil.ResolveDir(cfg.WatchPath)
	if err != nil {
		log.Error().Err(err).Msg("invalid watch path")
		return 1
	}
	scfg := supervisor.Config{
		Tool:          cfg.Tool,
		Subcommand:    cfg.Subcommand,
		Args:          forwarded,
		WatchRoot:     root,
		WatchExt:      cfg.WatchExt,
		Debounce:      cfg.Debounce(),
		ReadyMarkers:  cfg.ReadyMarkers,
		ReloadCommand: cfg.ReloadCommand,
		StopGrace:     cfg.StopGrace(),
		Stdout:        a.stdout,
		Stderr:        a.stderr,
		NewWatcher:    watcherFactory(cfg),
		Logger:        log,
		Publisher:     supervisor.LogPublisher{Log: log},
	}
	if a.stdin != nil {
		scfg.Stdin = a.stdin
		scfg.Terminal = supervisor.NewTTY(a.stdin)
	}
	return runSupervisor(ctx, scfg, statusOptions{
		addr:         cfg.StatusAddr,
		corsOrigins:  cfg.CORSOrigins,
		maxBodyBytes: cfg.StatusMaxBodyBytes,
	})
}

func watcherFactory(cfg config.Config) supervisor.WatcherFactory {
	opts := watch.Options{Backend: cfg.WatchBackend, IgnoreDirs: cfg.IgnoreDirs}
	return func(root string) (watch.Watcher, error) { return watch.New(root, opts) }
}

// runWithStatus runs s, serving the status API next to it when configured.
func runWithStatus(ctx context.Context, s *supervisor.Supervisor, st statusOptions, log zerolog.Logger) int {
	if st.addr == "" {
		return s.Run(ctx)
	}
	httpapi.SetLogger(log)
	httpapi.SetMaxBodyBytes(st.maxBodyBytes)
	if len(st.corsOrigins) > 0 {
		httpapi.SetCORSOptions(true, st.corsOrigins, nil, nil)
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := serveStatus(ctx, st.addr, httpapi.NewMux(s)); err != nil {
			log.Error().Err(err).Str("addr", st.addr).Msg("status API stopped")
		}
	}()
	code := s.Run(ctx)
	cancel()
	<-done
	return code
}

// MainWithArgs runs flutterwatch with args and returns the process exit code.
func MainWithArgs(args []string) int {
	return mainWith(args, os.Stdin, os.Stdout, os.Stderr)
}

func mainWith(args []string, stdin *os.File, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "flutterwatch: fatal: %v\n", r)
			code = 1
		}
	}()
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := buildRootCmd(a)
	root.SetArgs(args)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(stderr, "flutterwatch:", err.Error())
		return 1
	}
	return a.code
}

// Main returns an exit code for use by cmd/flutterwatch.
func Main() int { return MainWithArgs(os.Args[1:]) }

var _ httpapi.Service = (*supervisor.Supervisor)(nil)
