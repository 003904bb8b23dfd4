package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"notifyrelay/internal/app"
	"notifyrelay/internal/config"
)

const stopTimeout = 10 * time.Second

func newRunCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the relay until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.NewApp(config.NewConfigManager(f.configPath))
			if err != nil {
				return err
			}
			return serve(cmd.Context(), a)
		},
	}
}

// serve starts a and blocks until ctx is done or the app ends on its own,
// then stops it and reports the fatal error, if any.
func serve(ctx context.Context, a *app.App) error {
	if err := a.Start(ctx); err != nil {
		_ = a.Stop(context.Background(), app.StopFatalError)
		return err
	}

	reason := app.StopInputEnded
	select {
	case <-ctx.Done():
		reason = app.StopSignal
	case <-a.Done():
		if a.Err() != nil {
			reason = app.StopFatalError
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	_ = a.Stop(stopCtx, reason)
	return a.Err()
}
