package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipwatch/internal/job"
	"clipwatch/internal/jobcache"
	"clipwatch/internal/sequencer"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <job-id> <stage>",
		Short: "Re-run a failed pipeline stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStageAction(ctx, cmd, args, true)
		},
	}
}

func newResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <job-id> <stage>",
		Short: "Reset a pipeline stage back to pending",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStageAction(ctx, cmd, args, false)
		},
	}
}

func runStageAction(ctx *commandContext, cmd *cobra.Command, args []string, retry bool) error {
	jobID := args[0]
	stage, ok := job.ParseStage(args[1])
	if !ok {
		return fmt.Errorf("unknown stage %q (valid: %s)", args[1], stageNames())
	}

	api, cfg, err := ctx.apiClient()
	if err != nil {
		return err
	}
	logger, err := ctx.newLogger(cfg)
	if err != nil {
		return err
	}

	store := jobcache.NewStore(jobID)
	seq := sequencer.New(sequencer.OptionsFromConfig(cfg.Sequencer), api, store, nil, logger)

	var merged *job.Job
	if retry {
		merged, err = seq.RetryStage(cmd.Context(), stage)
	} else {
		merged, err = seq.ResetStage(cmd.Context(), stage)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", stage.Label(), merged.State(stage))
	return nil
}

func stageNames() string {
	names := ""
	for i, stage := range job.StageOrder() {
		if i > 0 {
			names += ", "
		}
		names += string(stage)
	}
	return names
}
