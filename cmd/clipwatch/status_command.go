package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipwatch/internal/job"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the current pipeline state of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, _, err := ctx.apiClient()
			if err != nil {
				return err
			}
			record, err := api.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			normalizeRecord(record)

			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderStatus(statusView{Snapshot: record}, shouldColorize(out)))
			return nil
		},
	}
}

// normalizeRecord allocates the record's maps so rendering helpers can
// treat a sparse backend response like a cached snapshot.
func normalizeRecord(record *job.Job) {
	if record.StageStatus == nil {
		record.StageStatus = make(map[job.StageName]job.StageState)
	}
	if record.StageTimestamps == nil {
		record.StageTimestamps = make(map[job.StageName]job.StageTiming)
	}
	if record.ArtifactURLs == nil {
		record.ArtifactURLs = make(map[job.ArtifactKind]string)
	}
}
