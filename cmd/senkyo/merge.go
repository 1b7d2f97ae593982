package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"senkyo/internal/output"
	"senkyo/internal/pipeline"
)

func newMergeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge <dir>",
		Short: "Combine cleaned files per municipality and vote type",
		Long: `merge groups the <name>_cleaned.csv files in dir by municipality and vote type,
orders each group by vote date and writes <out>/<code>_<type>_merged.csv with a
source_file column.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.setup(cmd,
				binding{"out", "output.merged_dir"},
				binding{"suffix", "output.suffix"},
			)
			if err != nil {
				return err
			}
			m := &pipeline.Merger{
				Suffix: a.cfg.Output.Suffix,
				OutDir: a.cfg.Output.MergedDir,
				Logger: a.logger,
			}
			groups, err := m.Merge(args[0])
			if err != nil {
				return err
			}
			for _, g := range groups {
				fmt.Fprintf(a.stdout, "%s\t%d files\t%s\n", g.Key, len(g.Sources), g.Path)
			}
			return nil
		},
	}
	cmd.Flags().String("out", "data/merged_output", "directory for merged files")
	cmd.Flags().String("suffix", output.DefaultSuffix, "suffix of cleaned files")
	return cmd
}
