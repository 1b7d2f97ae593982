package pipeline

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"senkyo/internal/election"
	"senkyo/internal/extract"
	"senkyo/internal/municipality"
	"senkyo/internal/output"
)

// SourceFileColumn is appended to merged files and names the cleaned file
// each row came from.
const SourceFileColumn = "source_file"

// MergedGroup is one written merged file.
type MergedGroup struct {
	Key     string // <code>_<type>
	Path    string
	Sources []string
}

// Merger combines cleaned files into one file per municipality and vote type.
type Merger struct {
	Suffix string // cleaned file suffix, default output.DefaultSuffix
	OutDir string
	Logger *log.Logger
}

type mergeRow struct {
	source string
	rec    extract.Record
	result election.Result
}

// Merge reads every <name><suffix>.csv in dir whose name parses as a dataset,
// groups them by GroupKey, orders each group by vote date (undated rows last,
// then by source name) and writes <OutDir>/<key>_merged.csv.
func (m *Merger) Merge(dir string) ([]MergedGroup, error) {
	suffix := m.Suffix
	if suffix == "" {
		suffix = output.DefaultSuffix
	}
	outDir := m.OutDir
	if outDir == "" {
		outDir = filepath.Join(dir, "merged_output")
	}

	var groups map[string][]mergeRow
	err := step("merge_read", func() error {
		var err error
		groups, err = m.collect(dir, suffix)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("no cleaned files (*%s.csv) in %s", suffix, dir)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]MergedGroup, 0, len(keys))
	for _, key := range keys {
		g, err := writeGroup(outDir, key, groups[key])
		if err != nil {
			return out, err
		}
		m.logf("merged %d files into %s", len(g.Sources), g.Path)
		out = append(out, g)
	}
	return out, nil
}

func (m *Merger) collect(dir, suffix string) (map[string][]mergeRow, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	groups := map[string][]mergeRow{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, suffix+".csv") {
			continue
		}
		ds, err := municipality.ParseDataset(strings.TrimSuffix(name, suffix+".csv"))
		if err != nil {
			m.logf("skip %s: %v", name, err)
			continue
		}
		recs, err := output.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		for _, rec := range recs {
			groups[ds.GroupKey()] = append(groups[ds.GroupKey()], mergeRow{
				source: name,
				rec:    rec,
				result: election.Parse(rec),
			})
		}
	}
	return groups, nil
}

func writeGroup(outDir, key string, rows []mergeRow) (MergedGroup, error) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].result.VoteDate, rows[j].result.VoteDate
		if a.Valid != b.Valid {
			return a.Valid
		}
		if a.Valid && !a.Time.Equal(b.Time) {
			return a.Time.Before(b.Time)
		}
		return rows[i].source < rows[j].source
	})

	header := rows[0].rec.Header()
	grid := [][]string{append(slices.Clone(header), SourceFileColumn)}
	g := MergedGroup{Key: key, Path: filepath.Join(outDir, key+"_merged.csv")}
	for _, r := range rows {
		if !slices.Equal(r.rec.Header(), header) {
			return g, fmt.Errorf("merge %s: %s has columns %v, want %v", key, r.source, r.rec.Header(), header)
		}
		grid = append(grid, append(r.rec.Values(), r.source))
		if !slices.Contains(g.Sources, r.source) {
			g.Sources = append(g.Sources, r.source)
		}
	}

	err := step("merge_write", func() error {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
		f, err := os.Create(g.Path)
		if err != nil {
			return fmt.Errorf("create %s: %w", g.Path, err)
		}
		if err := output.WriteRows(f, grid); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	})
	return g, err
}

func (m *Merger) logf(format string, args ...any) {
	if m.Logger != nil {
		m.Logger.Printf(format, args...)
	}
}
