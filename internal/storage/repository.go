// Package storage persists cleaned election records. Backends register a
// factory under a kind ("sqlite", "postgres", "mssql") from init; callers pick
// one at runtime with New.
//
// Every backend keeps the same two tables: election_records holds the current
// version of each source file's record, election_records_history holds the
// versions it replaced.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string
}

// Result counts what an Upsert did.
type Result struct {
	Inserted  int
	Updated   int
	Unchanged int
}

// Repository stores cleaned election records.
type Repository interface {
	// EnsureSchema creates the current and history tables if missing.
	EnsureSchema(ctx context.Context) error

	// Upsert writes records in one transaction. A record whose row hash
	// matches the stored one is left alone; a changed record moves the old
	// version to history first.
	Upsert(ctx context.Context, recs []StoredRecord) (Result, error)

	// Close releases backend resources. Call once.
	Close()
}

// Factory builds a Repository for a backend kind.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers a backend under kind. It panics on an empty kind, a nil
// factory, or a kind registered twice.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// Kinds lists registered backend kinds, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New constructs the Repository registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("storage: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported storage.kind=%s (registered: %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}
