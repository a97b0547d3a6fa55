package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"clipwatch/internal/archive"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <job-id>",
		Short: "Show recorded stage transitions for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Archive.Enabled {
				return fmt.Errorf("transition archive is disabled; enable [archive] in the config")
			}

			store, err := archive.Open(cfg)
			if err != nil {
				return fmt.Errorf("open transition archive: %w", err)
			}
			defer store.Close()

			transitions, err := store.History(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(transitions) == 0 {
				fmt.Fprintln(out, "No recorded transitions")
				return nil
			}

			rows := make([][]string, 0, len(transitions))
			for _, t := range transitions {
				rows = append(rows, []string{
					t.ObservedAt.Local().Format(time.DateTime),
					t.Stage.Label(),
					fmt.Sprintf("%s -> %s", t.From, t.To),
					string(t.Source),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Observed", "Stage", "Transition", "Source"}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum transitions to show (0 for all)")
	return cmd
}
