// Command senkyo scrapes, cleans, stores and merges Osaka municipal election
// result tables.
//
//	senkyo fetch <url|-> <name>       save the page's first table as data/<name>.csv
//	senkyo clean <input> [output]     extract the canonical record into <stem>_cleaned.csv
//	senkyo merge <dir>                combine cleaned files per municipality and vote type
//	senkyo summary <csv>              typed view of a cleaned or merged file
//	senkyo rules                      print the effective extraction rules
//
// Exit codes: 0 success, 2 usage or configuration error, 1 runtime error.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// usageError marks errors that exit with status 2.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usagef(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}

// usageArgs wraps a cobra positional-args validator so its failures are
// usage errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return usageError{err: err}
		}
		return nil
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintf(stderr, "senkyo: %v\n", err)

	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintln(stderr, "run 'senkyo --help' for usage")
		return 2
	}
	return 1
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "senkyo",
		Short:         "Osaka municipal election data pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usagef("unknown command %q", args[0])
			}
			return usagef("missing command")
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default ./senkyo.yaml when present)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose step logs on stderr")

	root.AddCommand(
		newCleanCmd(a),
		newFetchCmd(a),
		newMergeCmd(a),
		newSummaryCmd(a),
		newRulesCmd(a),
	)
	return root
}
