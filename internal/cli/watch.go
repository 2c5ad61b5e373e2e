package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"flutterwatch/internal/common/fsutil"
	"flutterwatch/internal/logging"
	"flutterwatch/internal/watch"
)

func buildWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "Print matching file changes without starting the tool",
		Long:    "watch runs only the recursive file watcher and prints every change that\nwould trigger a reload. Use it to check the watch setup on a project.",
		Example: "  flutterwatch watch -p ~/src/app",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			root, err := fsutil.ResolveDir(cfg.WatchPath)
			if err != nil {
				return err
			}
			log := logging.New(cfg.LogLevel, a.stderr)
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			w, err := watch.New(root, watch.Options{Backend: cfg.WatchBackend, IgnoreDirs: cfg.IgnoreDirs})
			if err != nil {
				return fmt.Errorf("watch %s: %w", root, err)
			}
			return runWatchProbe(ctx, w, root, watch.MatchExt(cfg.WatchExt), a.stdout, log)
		},
	}
	addCommonFlags(cmd.Flags())
	return cmd
}

// runWatchProbe prints one line per matching event until ctx is done or the
// watcher stops. It closes w.
func runWatchProbe(ctx context.Context, w watch.Watcher, root string, match watch.Filter, out io.Writer, log zerolog.Logger) error {
	defer func() {
		if err := w.Close(); err != nil {
			log.Warn().Err(err).Msg("close watcher")
		}
	}()
	log.Info().Str("root", root).Msg("watching for changes (Ctrl+C to stop)")
	events, errs := w.Events(), w.Errors()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("stopping watcher")
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !match(ev) {
				continue
			}
			path := ev.Path
			if rel, err := filepath.Rel(root, path); err == nil {
				path = rel
			}
			fmt.Fprintf(out, "✓ %s %s\n", ev.Kind, path)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Warn().Err(err).Msg("watch error")
		}
	}
}
