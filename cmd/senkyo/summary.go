package main

import (
	"github.com/spf13/cobra"

	"senkyo/internal/pipeline"
)

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <csv>",
		Short: "Print the typed view of a cleaned or merged file",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			rows, err := pipeline.Summarize(args[0])
			if err != nil {
				return err
			}
			return pipeline.WriteSummary(a.stdout, rows)
		},
	}
}
