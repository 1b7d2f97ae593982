package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Tx is the transaction surface Apply needs; each backend adapts its driver.
type Tx interface {
	Exec(ctx context.Context, query string, args ...any) error
	// QueryString scans a single string column. found is false on no rows.
	QueryString(ctx context.Context, query string, args ...any) (value string, found bool, err error)
}

// Apply runs the versioned upsert for recs inside tx:
//   - no current row: insert
//   - same row hash: nothing
//   - different row hash: copy current to history, then update current
//
// A record's history valid_to and new valid_from are both now, so versions
// tile without gaps.
func Apply(ctx context.Context, tx Tx, d Dialect, recs []StoredRecord, now time.Time) (Result, error) {
	var res Result
	ts := d.Time(now)
	seen := make(map[string]bool, len(recs))

	for _, r := range recs {
		if r.SourceKey == "" {
			return res, fmt.Errorf("upsert: record without source key")
		}
		if len(r.Values) != len(ValueColumns) {
			return res, fmt.Errorf("upsert %s: %d values, want %d", r.SourceKey, len(r.Values), len(ValueColumns))
		}
		if seen[r.SourceKey] {
			return res, fmt.Errorf("upsert: duplicate source key %q in batch", r.SourceKey)
		}
		seen[r.SourceKey] = true
		if r.RowHash == "" {
			r.RowHash = RowHash(r)
		}

		stored, found, err := tx.QueryString(ctx, d.SelectCurrentSQL(), r.SourceKey)
		if err != nil {
			return res, fmt.Errorf("select current %s: %w", r.SourceKey, err)
		}

		switch {
		case !found:
			args := append(r.args(), ts)
			if err := tx.Exec(ctx, d.InsertCurrentSQL(), args...); err != nil {
				return res, fmt.Errorf("insert %s: %w", r.SourceKey, err)
			}
			res.Inserted++

		case stored == r.RowHash:
			res.Unchanged++

		default:
			if err := tx.Exec(ctx, d.MoveToHistorySQL(), ts, r.SourceKey); err != nil {
				return res, fmt.Errorf("move %s to history: %w", r.SourceKey, err)
			}
			args := append(r.args()[1:], ts, r.SourceKey)
			if err := tx.Exec(ctx, d.UpdateCurrentSQL(), args...); err != nil {
				return res, fmt.Errorf("update %s: %w", r.SourceKey, err)
			}
			res.Updated++
		}
	}
	return res, nil
}

// SQLTx adapts a database/sql transaction to Tx.
type SQLTx struct {
	Tx *sql.Tx
}

func (t SQLTx) Exec(ctx context.Context, query string, args ...any) error {
	_, err := t.Tx.ExecContext(ctx, query, args...)
	return err
}

func (t SQLTx) QueryString(ctx context.Context, query string, args ...any) (string, bool, error) {
	var s string
	err := t.Tx.QueryRowContext(ctx, query, args...).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

// UpsertSQL runs Apply in a database/sql transaction, committing on success.
func UpsertSQL(ctx context.Context, db *sql.DB, d Dialect, recs []StoredRecord, now time.Time) (Result, error) {
	if len(recs) == 0 {
		return Result{}, nil
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := Apply(ctx, SQLTx{Tx: tx}, d, recs, now)
	if err != nil {
		return Result{}, err
	}
	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

// EnsureSchemaSQL runs the dialect's DDL on db.
func EnsureSchemaSQL(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, stmt := range d.CreateStatements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s ensure schema: %w", d.Name, err)
		}
	}
	return nil
}
