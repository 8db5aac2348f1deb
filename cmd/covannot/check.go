package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"covannot/internal/check"
)

// runCheck performs a single check of the project directory.
func (a *app) runCheck(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, err := check.NewRunner(a.dir, a.cfg, a.logger)
	if err != nil {
		return err
	}
	return a.checkOnce(ctx, cmd, runner)
}

// checkOnce runs the check and prints its diagnostics to stderr.
func (a *app) checkOnce(ctx context.Context, cmd *cobra.Command, runner *check.Runner) error {
	result, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	if err := a.printer(cmd.ErrOrStderr()).PrintAll(result.Diagnostics); err != nil {
		return err
	}
	if result.Failed() {
		return errInconsistent
	}
	return nil
}
