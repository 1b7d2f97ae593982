// Package htmltable turns the tables of an HTML page into raw rows the way a
// spreadsheet import would: header and data cells alike, spans repeated into
// every grid position they cover.
package htmltable

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxSpan bounds colspan/rowspan so a hostile attribute cannot blow up the grid.
const maxSpan = 1000

// ParseTables returns every <table> in document order. Nested tables are
// returned separately and their rows do not leak into the parent.
func ParseTables(html string) ([][][]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var tables [][][]string
	doc.Find("table").Each(func(_ int, tbl *goquery.Selection) {
		tables = append(tables, parseTable(tbl))
	})
	return tables, nil
}

// Table returns table i of the page, or an error naming how many exist.
func Table(html string, i int) ([][]string, error) {
	tables, err := ParseTables(html)
	if err != nil {
		return nil, err
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables found")
	}
	if i < 0 || i >= len(tables) {
		return nil, fmt.Errorf("table index %d out of range (page has %d)", i, len(tables))
	}
	return tables[i], nil
}

// carry is a rowspan cell still covering rows below it.
type carry struct {
	text string
	left int
}

func parseTable(tbl *goquery.Selection) [][]string {
	var (
		rows    [][]string
		pending = map[int]*carry{}
	)

	tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if !tr.Closest("table").IsSelection(tbl) {
			return
		}

		var row []string
		col := 0
		fill := func() {
			for {
				c, ok := pending[col]
				if !ok {
					return
				}
				row = append(row, c.text)
				if c.left--; c.left == 0 {
					delete(pending, col)
				}
				col++
			}
		}

		tr.ChildrenFiltered("th,td").Each(func(_ int, cell *goquery.Selection) {
			fill()
			text := cellText(cell)
			cs := span(cell, "colspan")
			rs := span(cell, "rowspan")
			for k := 0; k < cs; k++ {
				row = append(row, text)
				if rs > 1 {
					pending[col] = &carry{text: text, left: rs - 1}
				}
				col++
			}
		})

		// spans that continue past the last explicit cell
		for len(pending) > 0 {
			last := -1
			for c := range pending {
				if c > last {
					last = c
				}
			}
			if last < col {
				break
			}
			if _, ok := pending[col]; !ok {
				row = append(row, "")
				col++
				continue
			}
			fill()
		}

		rows = append(rows, row)
	})
	return rows
}

func cellText(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.Text()), " ")
}

func span(s *goquery.Selection, attr string) int {
	v, ok := s.Attr(attr)
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	if n > maxSpan {
		return maxSpan
	}
	return n
}
