// Package sqlite is the SQLite storage backend (modernc.org/sqlite, no cgo).
// Timestamps are stored as RFC3339Nano text.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"senkyo/internal/storage"
)

// Repo implements storage.Repository for SQLite.
type Repo struct {
	db  *sql.DB
	now func() time.Time
}

func init() {
	storage.Register("sqlite", New)
}

// New opens the database at cfg.DSN (a file path or ":memory:").
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("sqlite: empty dsn")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// a second connection to ":memory:" would see an empty database
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	return &Repo{db: db, now: time.Now}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) EnsureSchema(ctx context.Context) error {
	return storage.EnsureSchemaSQL(ctx, r.db, storage.SQLite)
}

func (r *Repo) Upsert(ctx context.Context, recs []storage.StoredRecord) (storage.Result, error) {
	return storage.UpsertSQL(ctx, r.db, storage.SQLite, recs, r.now())
}

// parseTime reads back a timestamp written by the SQLite dialect.
func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite time %q: %w", s, err)
	}
	return t.UTC(), nil
}
