// Package mssql is the SQL Server storage backend.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"senkyo/internal/storage"
)

// Repo implements storage.Repository for SQL Server via database/sql and
// the "sqlserver" driver.
type Repo struct {
	db *sql.DB
}

func init() {
	storage.Register("mssql", New)
}

// New opens cfg.DSN, a sqlserver:// URL.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mssql open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mssql ping: %w", err)
	}
	return &Repo{db: db}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

func (r *Repo) EnsureSchema(ctx context.Context) error {
	return storage.EnsureSchemaSQL(ctx, r.db, storage.SQLServer)
}

func (r *Repo) Upsert(ctx context.Context, recs []storage.StoredRecord) (storage.Result, error) {
	return storage.UpsertSQL(ctx, r.db, storage.SQLServer, recs, time.Now())
}
