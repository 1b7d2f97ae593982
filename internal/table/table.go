// Package table reads and writes the raw, header-less tables scraped from
// municipal election pages.
package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// Encoding names accepted by ReadOptions.
const (
	EncodingAuto     = "auto"
	EncodingUTF8     = "utf-8"
	EncodingShiftJIS = "shift_jis"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadOptions controls how a raw table is parsed.
type ReadOptions struct {
	// Encoding is one of EncodingAuto (default), EncodingUTF8 or
	// EncodingShiftJIS. Auto decodes as Shift_JIS only when the input is not
	// valid UTF-8.
	Encoding string

	// Comma is the field delimiter. Zero means ','.
	Comma rune

	// TrimSpace trims leading and trailing whitespace from every cell.
	TrimSpace bool
}

// Read parses a header-less CSV table. Rows may have differing lengths.
// Empty input yields an empty table.
func Read(r io.Reader, opt ReadOptions) ([][]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}

	text, err := decode(raw, opt.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv read: %w", err)
		}
		if opt.TrimSpace {
			for i, v := range rec {
				rec[i] = strings.TrimSpace(v)
			}
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// ReadFile opens path and parses it with Read.
func ReadFile(path string, opt ReadOptions) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	rows, err := Read(f, opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

func decode(raw []byte, encoding string) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingAuto:
		if utf8.Valid(raw) {
			return string(raw), nil
		}
		return decodeShiftJIS(raw)
	case EncodingUTF8, "utf8":
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("input is not valid utf-8")
		}
		return string(raw), nil
	case EncodingShiftJIS, "sjis", "cp932":
		return decodeShiftJIS(raw)
	default:
		return "", fmt.Errorf("unsupported encoding %q", encoding)
	}
}

func decodeShiftJIS(raw []byte) (string, error) {
	out, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), raw)
	if err != nil {
		return "", fmt.Errorf("decode shift_jis: %w", err)
	}
	return string(out), nil
}

// Write writes rows as CSV.
func Write(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteFile writes rows to path, creating parent directories as needed.
func WriteFile(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
