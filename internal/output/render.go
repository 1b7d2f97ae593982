package output

import (
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/width"

	"senkyo/internal/extract"
)

// columnGap is the number of spaces between aligned columns.
const columnGap = 2

// Render writes records as an aligned text table with a leading row index.
func Render(w io.Writer, recs ...extract.Record) error {
	if len(recs) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(recs)+1)
	rows = append(rows, append([]string{""}, recs[0].Header()...))
	for i, r := range recs {
		rows = append(rows, append([]string{strconv.Itoa(i)}, r.Values()...))
	}
	return WriteAligned(w, rows)
}

// WriteAligned writes rows as space-aligned columns. Cells are padded by
// display width, so wide (CJK, full-width) characters count as two columns.
// The last cell of a row is never padded.
func WriteAligned(w io.Writer, rows [][]string) error {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i == len(widths) {
				widths = append(widths, 0)
			}
			if n := DisplayWidth(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	var b strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			b.WriteString(cell)
			if i < len(row)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-DisplayWidth(cell)+columnGap))
			}
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// DisplayWidth is the number of terminal columns s occupies: two for East
// Asian wide and full-width runes, one otherwise.
func DisplayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

