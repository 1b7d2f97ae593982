// Package postgres is the Postgres storage backend on a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"senkyo/internal/storage"
)

// Repo implements storage.Repository for Postgres. The current row is read
// with SELECT ... FOR UPDATE so concurrent runs on the same file serialize.
type Repo struct {
	pool *pgxpool.Pool
}

func init() {
	storage.Register("postgres", New)
}

// New connects a pool to cfg.DSN.
func New(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Repo{pool: pool}, nil
}

func (r *Repo) Close() { r.pool.Close() }

func (r *Repo) EnsureSchema(ctx context.Context) error {
	for _, stmt := range storage.Postgres.CreateStatements() {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres ensure schema: %w", err)
		}
	}
	return nil
}

func (r *Repo) Upsert(ctx context.Context, recs []storage.StoredRecord) (storage.Result, error) {
	if len(recs) == 0 {
		return storage.Result{}, nil
	}
	var res storage.Result
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		res, err = storage.Apply(ctx, pgxTx{tx: tx}, storage.Postgres, recs, time.Now())
		return err
	})
	if err != nil {
		return storage.Result{}, err
	}
	return res, nil
}

// pgxTx adapts pgx.Tx to storage.Tx.
type pgxTx struct {
	tx pgx.Tx
}

func (t pgxTx) Exec(ctx context.Context, query string, args ...any) error {
	_, err := t.tx.Exec(ctx, query, args...)
	return err
}

func (t pgxTx) QueryString(ctx context.Context, query string, args ...any) (string, bool, error) {
	var s string
	err := t.tx.QueryRow(ctx, query, args...).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}
