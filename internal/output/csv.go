// Package output writes cleaned election records in the formats the
// dashboards and spreadsheet users consume.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"senkyo/internal/extract"
)

// DefaultSuffix is appended to the input stem when no output path is given.
const DefaultSuffix = "_cleaned"

// DefaultPath derives the output path for input: same directory, input base
// name without extension, suffix appended, ".csv" extension.
func DefaultPath(input, suffix string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(input), stem+suffix+".csv")
}

// WriteCSV writes records as UTF-8 CSV with a byte-order mark. The header is
// taken from the first record; every record must have the same fields.
func WriteCSV(w io.Writer, recs ...extract.Record) error {
	if len(recs) == 0 {
		return fmt.Errorf("write csv: no records")
	}
	header := recs[0].Header()
	rows := make([][]string, 0, len(recs)+1)
	rows = append(rows, header)
	for i, r := range recs {
		if len(r.Fields) != len(header) {
			return fmt.Errorf("write csv: record %d has %d fields, want %d", i, len(r.Fields), len(header))
		}
		rows = append(rows, r.Values())
	}
	return WriteRows(w, rows)
}

// WriteRows writes rows as UTF-8 CSV with a byte-order mark.
func WriteRows(w io.Writer, rows [][]string) error {
	bw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(bw)
	if err := cw.WriteAll(rows); err != nil {
		_ = bw.Close()
		return fmt.Errorf("write csv: %w", err)
	}
	if err := bw.Close(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteFile writes records to path with WriteCSV.
func WriteFile(path string, recs ...extract.Record) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, recs...); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

// ReadCSV reads a cleaned or merged CSV back into records. A leading BOM is
// optional. Since the file format cannot tell a missing field from an empty
// one, empty cells are read back as not found.
func ReadCSV(r io.Reader) ([]extract.Record, error) {
	cr := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	cr.FieldsPerRecord = -1

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv read: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv read: missing header")
	}

	header := rows[0]
	recs := make([]extract.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := extract.Record{Fields: make([]extract.Field, len(header))}
		for i, name := range header {
			f := extract.Field{Name: name}
			if i < len(row) && row[i] != "" {
				f.Value = row[i]
				f.Found = true
			}
			rec.Fields[i] = f
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// ReadFile reads a cleaned or merged CSV file.
func ReadFile(path string) ([]extract.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	recs, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}
