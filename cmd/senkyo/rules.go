package main

import (
	"github.com/spf13/cobra"

	"senkyo/internal/output"
)

func newRulesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the effective extraction rules",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd, binding{"rules", "extract.rules_file"}); err != nil {
				return err
			}
			ex, err := a.extractor()
			if err != nil {
				return err
			}
			rows := [][]string{{"field", "label", "shape", "pattern"}}
			for _, r := range ex.Rules() {
				pattern := r.Pattern
				if pattern == "" {
					pattern = "-"
				}
				rows = append(rows, []string{r.Field, r.Label, string(r.Shape), pattern})
			}
			return output.WriteAligned(a.stdout, rows)
		},
	}
	cmd.Flags().String("rules", "", "rule file (JSON or YAML)")
	return cmd
}
