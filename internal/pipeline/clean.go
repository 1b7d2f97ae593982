// Package pipeline runs the senkyo jobs (clean, fetch, merge, summary) on top
// of the extraction, storage and output packages. Commands stay thin; all
// sequencing and step metrics live here.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"senkyo/internal/extract"
	"senkyo/internal/metrics"
	"senkyo/internal/objectstore"
	"senkyo/internal/output"
	"senkyo/internal/storage"
	"senkyo/internal/table"
)

// Cleaner turns one raw table file into a cleaned record file.
type Cleaner struct {
	Extractor *extract.Extractor
	Read      table.ReadOptions
	Suffix    string
	XLSX      bool

	// Optional sinks.
	Repo     storage.Repository
	Uploader objectstore.Uploader

	Logger   *log.Logger
	NewRunID func() string
}

// CleanResult describes a finished clean.
type CleanResult struct {
	RunID    string
	Input    string
	Output   string
	XLSXPath string
	Record   extract.Record
	Stored   *storage.Result
	Unstored []string // record fields without a storage column
	Uploaded []string
}

// Clean reads input, extracts the canonical record and writes it to output
// (DefaultPath of input when empty). Storage and upload run only when their
// sinks are set; their failures fail the run after the CSV is written.
func (c *Cleaner) Clean(ctx context.Context, input, out string) (CleanResult, error) {
	ex := c.Extractor
	if ex == nil {
		ex = extract.Default()
	}
	newID := c.NewRunID
	if newID == nil {
		newID = uuid.NewString
	}
	if out == "" {
		out = output.DefaultPath(input, c.Suffix)
	}
	res := CleanResult{RunID: newID(), Input: input, Output: out}

	var rows [][]string
	err := step("read", func() error {
		var err error
		rows, err = table.ReadFile(input, c.Read)
		return err
	})
	if err != nil {
		return res, err
	}
	c.logf("read %s: %d rows", input, len(rows))

	_ = step("extract", func() error {
		res.Record = ex.Extract(rows)
		return nil
	})
	for _, f := range res.Record.Fields {
		metrics.RecordField(f.Name, f.Found)
	}
	if missing := res.Record.Missing(); len(missing) > 0 {
		c.logf("fields not found: %s", strings.Join(missing, ", "))
	}

	err = step("write", func() error {
		if err := output.WriteFile(out, res.Record); err != nil {
			return err
		}
		if !c.XLSX {
			return nil
		}
		res.XLSXPath = output.XLSXPath(out)
		return output.WriteXLSX(res.XLSXPath, res.Record.Header(), [][]string{res.Record.Values()})
	})
	if err != nil {
		return res, err
	}

	if c.Repo != nil {
		if res.Unstored = storage.UnstoredFields(res.Record); len(res.Unstored) > 0 {
			c.logf("fields not stored (no column): %s", strings.Join(res.Unstored, ", "))
		}
		err = step("store", func() error {
			sr := storage.NewStoredRecord(SourceKey(input), res.Record, res.RunID)
			r, err := c.Repo.Upsert(ctx, []storage.StoredRecord{sr})
			if err != nil {
				return fmt.Errorf("store %s: %w", sr.SourceKey, err)
			}
			res.Stored = &r
			return nil
		})
		if err != nil {
			return res, err
		}
		c.logf("stored: inserted=%d updated=%d unchanged=%d", res.Stored.Inserted, res.Stored.Updated, res.Stored.Unchanged)
	}

	if c.Uploader != nil {
		err = step("upload", func() error {
			paths := []string{out}
			if res.XLSXPath != "" {
				paths = append(paths, res.XLSXPath)
			}
			for _, p := range paths {
				key, err := c.Uploader.Upload(ctx, res.RunID, p)
				if err != nil {
					return err
				}
				res.Uploaded = append(res.Uploaded, key)
				c.logf("uploaded %s", key)
			}
			return nil
		})
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

func (c *Cleaner) logf(format string, args ...any) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
	}
}

// SourceKey is the storage key of an input file: its base name without
// extension.
func SourceKey(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// step times fn and records it under name.
func step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(name, err, time.Since(start))
	return err
}
