package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"covannot/internal/check"
	"covannot/internal/logging"
	"covannot/internal/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-run the check whenever sources or coverage reports change",
		Long: `Runs the check once, then watches the project directory and runs it again
after every burst of changes to annotated sources or coverage reports.
Stop with Ctrl-C.`,
		Args: cobra.NoArgs,
		RunE: a.runWatch,
	}
}

func (a *app) runWatch(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, err := check.NewRunner(a.dir, a.cfg, a.logger)
	if err != nil {
		return err
	}
	logger := logging.For(a.logger, logging.CategoryWatch)

	report := func(ctx context.Context) {
		if err := a.checkOnce(ctx, cmd, runner); err != nil {
			if !errors.Is(err, context.Canceled) {
				fmt.Fprintln(cmd.ErrOrStderr(), "covannot:", err)
			}
			return
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "covannot: ok")
	}

	inv, err := runner.Workspace().Discover(ctx, runner.Dir())
	if err != nil {
		return err
	}
	report(ctx)

	ws := runner.Workspace()
	root := runner.Dir()
	w, err := watch.New(watch.Options{
		Root:     root,
		Dirs:     inv.Dirs,
		Relevant: func(path string) bool { return ws.IsWatched(root, path) },
		WatchDir: func(path string) bool { return ws.IsWatchedDir(root, path) },
		OnChange: func(ctx context.Context, paths []string) {
			logger.Info("re-running check", zap.Int("changed", len(paths)))
			report(ctx)
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case <-w.Done():
	}
	w.Stop()

	stats := w.Stats()
	logger.Info("watch stopped",
		zap.Int("runs", stats.Runs),
		zap.Int("created", stats.FilesCreated),
		zap.Int("modified", stats.FilesModified),
		zap.Int("deleted", stats.FilesDeleted),
		zap.Int("dirs_added", stats.DirsAdded),
		zap.Int("errors", stats.Errors))
	return nil
}
