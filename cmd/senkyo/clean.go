package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"senkyo/internal/output"
	"senkyo/internal/pipeline"
	"senkyo/internal/table"
)

func newCleanCmd(a *app) *cobra.Command {
	var upload bool
	cmd := &cobra.Command{
		Use:   "clean <input> [output]",
		Short: "Extract the canonical election record from a raw table",
		Long: `clean reads a scraped table, extracts the nine canonical fields and writes
them as a one-row UTF-8 CSV (with BOM). Without an output path the file is
written next to the input as <stem>_cleaned.csv.`,
		Args: usageArgs(cobra.RangeArgs(1, 2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.setup(cmd,
				binding{"rules", "extract.rules_file"},
				binding{"xlsx", "output.xlsx"},
				binding{"suffix", "output.suffix"},
				binding{"encoding", "input.encoding"},
				binding{"db-kind", "storage.kind"},
				binding{"db-dsn", "storage.dsn"},
			)
			if err != nil {
				return err
			}

			ex, err := a.extractor()
			if err != nil {
				return err
			}
			c := &pipeline.Cleaner{
				Extractor: ex,
				Read: table.ReadOptions{
					Encoding:  a.cfg.Input.Encoding,
					Comma:     a.cfg.Input.CommaRune(),
					TrimSpace: a.cfg.Input.TrimSpace,
				},
				Suffix: a.cfg.Output.Suffix,
				XLSX:   a.cfg.Output.XLSX,
				Logger: a.logger,
			}
			if c.Repo, err = a.repository(cmd.Context()); err != nil {
				return err
			}
			if upload {
				if c.Uploader, err = a.uploader(); err != nil {
					return err
				}
			}

			var out string
			if len(args) == 2 {
				out = args[1]
			}
			res, err := c.Clean(cmd.Context(), args[0], out)
			if err != nil {
				return err
			}

			if len(res.Unstored) > 0 {
				fmt.Fprintf(a.stderr, "warning: fields kept in the CSV but not stored: %s\n", strings.Join(res.Unstored, ", "))
			}
			fmt.Fprintf(a.stdout, "整理完了: %s\n", res.Output)
			if res.XLSXPath != "" {
				fmt.Fprintf(a.stdout, "xlsx: %s\n", res.XLSXPath)
			}
			fmt.Fprint(a.stdout, "\n整理後のデータ:\n")
			return output.Render(a.stdout, res.Record)
		},
	}

	f := cmd.Flags()
	f.String("rules", "", "rule file (JSON or YAML) replacing or extending the default rules")
	f.Bool("xlsx", false, "also write an .xlsx copy next to the CSV")
	f.String("suffix", output.DefaultSuffix, "suffix for the derived output name")
	f.String("encoding", "auto", "input encoding: auto, utf-8 or shift_jis")
	f.Bool("no-fold", false, "do not fold full-width characters before matching")
	f.String("db-kind", "", "store the record: sqlite, postgres or mssql")
	f.String("db-dsn", "", "storage DSN")
	f.BoolVar(&upload, "upload", false, "upload outputs to the configured object store")
	return cmd
}
