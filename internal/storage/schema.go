package storage

import (
	"fmt"
	"strings"
	"time"
)

// Dialect captures the SQL differences between backends.
type Dialect struct {
	Name string

	// Placeholder renders bind parameter n (1-based).
	Placeholder func(n int) string

	// Column types.
	KeyType  string
	TextType string
	TimeType string

	// CreateTable wraps a CREATE TABLE body so it is a no-op when the table exists.
	CreateTable func(table, body string) string

	// Time converts a timestamp into the bind value the driver stores.
	Time func(t time.Time) any

	// TimeCast is appended to a timestamp bind used in a SELECT list, where
	// the server cannot infer its type.
	TimeCast string

	// SelectLock is appended to the current-row read inside the upsert.
	SelectLock string
}

// dataColumns lists the record columns written on every version.
func dataColumns() []string {
	cols := []string{"source_key", "municipality", "vote_type"}
	for _, c := range ValueColumns {
		cols = append(cols, c.Column)
	}
	return append(cols, "row_hash", "run_id")
}

// CreateStatements returns the DDL for both tables.
func (d Dialect) CreateStatements() []string {
	cur := d.columnDefs() + ",\n  valid_from " + d.TimeType + " NOT NULL" +
		",\n  PRIMARY KEY (source_key)"
	hist := d.columnDefs() + ",\n  valid_from " + d.TimeType + " NOT NULL" +
		",\n  valid_to " + d.TimeType + " NOT NULL" +
		",\n  PRIMARY KEY (source_key, valid_from)"
	return []string{
		d.CreateTable(CurrentTable, cur),
		d.CreateTable(HistoryTable, hist),
	}
}

func (d Dialect) columnDefs() string {
	defs := make([]string, 0, len(dataColumns()))
	for _, c := range dataColumns() {
		switch c {
		case "source_key":
			defs = append(defs, "  source_key "+d.KeyType+" NOT NULL")
		case "row_hash":
			defs = append(defs, "  row_hash "+d.KeyType+" NOT NULL")
		default:
			defs = append(defs, "  "+c+" "+d.TextType+" NULL")
		}
	}
	return strings.Join(defs, ",\n")
}

// SelectCurrentSQL reads the stored hash of a source key. One bind: source_key.
func (d Dialect) SelectCurrentSQL() string {
	return fmt.Sprintf("SELECT row_hash FROM %s WHERE source_key = %s%s", CurrentTable, d.Placeholder(1), d.SelectLock)
}

// InsertCurrentSQL inserts a new current row. Binds: dataColumns..., valid_from.
func (d Dialect) InsertCurrentSQL() string {
	cols := append(dataColumns(), "valid_from")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		CurrentTable, strings.Join(cols, ", "), d.placeholders(1, len(cols)))
}

// MoveToHistorySQL copies the current row into history, closing it.
// Binds: valid_to, source_key.
func (d Dialect) MoveToHistorySQL() string {
	cols := strings.Join(append(dataColumns(), "valid_from"), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s, valid_to) SELECT %s, %s FROM %s WHERE source_key = %s",
		HistoryTable, cols, cols, d.Placeholder(1)+d.TimeCast, CurrentTable, d.Placeholder(2))
}

// UpdateCurrentSQL overwrites the current row. Binds: dataColumns[1:]...,
// valid_from, source_key.
func (d Dialect) UpdateCurrentSQL() string {
	cols := append(dataColumns()[1:], "valid_from")
	set := make([]string, len(cols))
	for i, c := range cols {
		set[i] = c + " = " + d.Placeholder(i+1)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE source_key = %s",
		CurrentTable, strings.Join(set, ", "), d.Placeholder(len(cols)+1))
}

func (d Dialect) placeholders(from, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = d.Placeholder(from + i)
	}
	return strings.Join(ph, ", ")
}

func createIfNotExists(table, body string) string {
	return "CREATE TABLE IF NOT EXISTS " + table + " (\n" + body + "\n)"
}

// SQLite stores times as RFC3339Nano text.
var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: func(int) string { return "?" },
	KeyType:     "TEXT",
	TextType:    "TEXT",
	TimeType:    "TEXT",
	CreateTable: createIfNotExists,
	Time:        func(t time.Time) any { return t.UTC().Format(time.RFC3339Nano) },
}

// Postgres uses $n binds and timestamptz.
var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	KeyType:     "TEXT",
	TextType:    "TEXT",
	TimeType:    "TIMESTAMPTZ",
	CreateTable: createIfNotExists,
	Time:        func(t time.Time) any { return t.UTC() },
	TimeCast:    "::timestamptz",
	SelectLock:  " FOR UPDATE",
}

// SQLServer uses @pN binds and has no CREATE TABLE IF NOT EXISTS.
var SQLServer = Dialect{
	Name:        "mssql",
	Placeholder: func(n int) string { return fmt.Sprintf("@p%d", n) },
	KeyType:     "NVARCHAR(200)",
	TextType:    "NVARCHAR(100)",
	TimeType:    "DATETIME2",
	CreateTable: func(table, body string) string {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (\n%s\n)", table, table, body)
	},
	Time: func(t time.Time) any { return t.UTC() },
}
