package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"senkyo/internal/htmltable"
	"senkyo/internal/municipality"
	"senkyo/internal/table"
)

// ErrInvalidName marks a dataset name that does not follow <code>[_a|_b]_<year>.
var ErrInvalidName = errors.New("invalid dataset name")

// Fetcher downloads an election results page and saves one of its tables.
type Fetcher struct {
	Loader  *htmltable.Loader
	DataDir string
	Logger  *log.Logger
}

// FetchResult describes a saved table.
type FetchResult struct {
	Path    string
	Dataset municipality.Dataset
	Rows    int
}

// Fetch loads url (stdin when "-"), takes table index tableIdx and writes it
// to <DataDir>/<name>.csv. Unknown municipality codes are accepted; callers
// check FetchResult.Dataset.Known.
func (f *Fetcher) Fetch(ctx context.Context, url, name string, tableIdx int, stdin io.Reader) (FetchResult, error) {
	ds, err := municipality.ParseDataset(name)
	if err != nil {
		return FetchResult{}, fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	loader := f.Loader
	if loader == nil {
		loader = htmltable.NewLoader(nil, 0)
	}

	var html string
	err = step("fetch", func() error {
		var err error
		html, err = loader.Load(ctx, htmltable.Input{URL: url, Stdin: stdin})
		return err
	})
	if err != nil {
		return FetchResult{}, err
	}

	var rows [][]string
	err = step("parse_html", func() error {
		var err error
		rows, err = htmltable.Table(html, tableIdx)
		return err
	})
	if err != nil {
		return FetchResult{}, fmt.Errorf("%s: %w", url, err)
	}

	dir := f.DataDir
	if dir == "" {
		dir = "data"
	}
	path := filepath.Join(dir, ds.String()+".csv")
	if err := step("write", func() error { return table.WriteFile(path, rows) }); err != nil {
		return FetchResult{}, err
	}
	f.logf("saved %s (%s, %d rows)", path, ds.Name(), len(rows))
	return FetchResult{Path: path, Dataset: ds, Rows: len(rows)}, nil
}

func (f *Fetcher) logf(format string, args ...any) {
	if f.Logger != nil {
		f.Logger.Printf(format, args...)
	}
}
