package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"clipwatch/internal/jobcache"
	"clipwatch/internal/notifications"
	"clipwatch/internal/sequencer"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process <job-id>",
		Short: "Run the full pipeline for a job: download, chain, upload, sheets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID := args[0]
			api, cfg, err := ctx.apiClient()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger(cfg)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store := jobcache.NewStore(jobID)
			record, err := api.GetJob(runCtx, jobID)
			if err != nil {
				return err
			}
			store.Merge(record.AsDelta(), jobcache.SourcePoll)

			out := cmd.OutOrStdout()
			notifier := notifications.NewService(cfg.Notifications, logger)
			seq := sequencer.New(sequencer.OptionsFromConfig(cfg.Sequencer), api, store, notifier, logger)
			seq.OnPhase = func(phase sequencer.Phase) {
				fmt.Fprintf(out, "-> %s\n", phase)
			}

			result, err := seq.Run(runCtx)
			if err != nil {
				return err
			}

			fmt.Fprintln(out, result.Summary())
			fmt.Fprint(out, renderStatus(statusView{Snapshot: store.Snapshot()}, shouldColorize(out)))
			return nil
		},
	}
}
