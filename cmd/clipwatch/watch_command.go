package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"clipwatch/internal/archive"
	"clipwatch/internal/watcher"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Track a job until interrupted, reconciling push and polling updates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, cfg, err := ctx.apiClient()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return err
			}

			var history *archive.Store
			if cfg.Archive.Enabled {
				history, err = archive.Open(cfg)
				if err != nil {
					return fmt.Errorf("open transition archive: %w", err)
				}
				defer history.Close()
			}

			w := watcher.New(args[0], watcher.Options{
				Config:  cfg,
				API:     api,
				Archive: history,
				Logger:  logger,
			})

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err = w.Run(runCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
