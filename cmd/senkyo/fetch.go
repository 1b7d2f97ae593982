package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"senkyo/internal/htmltable"
	"senkyo/internal/pipeline"
)

func newFetchCmd(a *app) *cobra.Command {
	var tableIdx int
	cmd := &cobra.Command{
		Use:   "fetch <url|-> <name>",
		Short: "Save a table from an election results page",
		Long: `fetch downloads an election results page (or reads HTML from stdin when the
URL is "-") and saves one of its tables as <data-dir>/<name>.csv.

name is <code>[_a|_b]_<year>: a municipality code, an optional vote type
(a = 首長選挙, b = 議員選挙) and the election year, e.g. ski_b_2023.`,
		Args: usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := a.setup(cmd,
				binding{"data-dir", "fetch.data_dir"},
				binding{"timeout", "fetch.timeout"},
				binding{"user-agent", "fetch.user_agent"},
			)
			if err != nil {
				return err
			}
			fc := a.cfg.Fetch
			f := &pipeline.Fetcher{
				Loader: htmltable.NewLoader(&http.Client{}, fc.Timeout,
					htmltable.WithUserAgent(fc.UserAgent),
					htmltable.WithMaxRetries(fc.MaxRetries)),
				DataDir: fc.DataDir,
				Logger:  a.logger,
			}

			res, err := f.Fetch(cmd.Context(), args[0], args[1], tableIdx, a.stdin)
			if errors.Is(err, pipeline.ErrInvalidName) {
				return usageError{err: err}
			}
			if err != nil {
				return err
			}
			if !res.Dataset.Known() {
				fmt.Fprintf(a.stderr, "warning: municipality code %q is not in the reference table\n", res.Dataset.Code)
			}
			fmt.Fprintf(a.stdout, "保存完了: %s (%s, %d rows)\n", res.Path, res.Dataset.Name(), res.Rows)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&tableIdx, "table", 0, "index of the table on the page")
	f.String("data-dir", "data", "directory for saved tables")
	f.Duration("timeout", 0, "request timeout (default from config)")
	f.String("user-agent", "", "User-Agent header (default from config)")
	return cmd
}
