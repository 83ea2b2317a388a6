// Package store implements the keyed document store that nodes share: one
// JSON document per scope, addressed by dotted paths.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"matchmesh/internal/config"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrInvalidPath = errors.New("invalid path")
	ErrClosed      = errors.New("store closed")
)

// Store is the keyed-store contract every backend satisfies.
//
// Write creates intermediate objects as needed and replaces non-object
// intermediates. Remove deletes only the addressed leaf; removing a missing
// path is not an error. An empty path addresses the whole scope document.
type Store interface {
	Read(ctx context.Context, scope, path string) (json.RawMessage, error)
	Write(ctx context.Context, scope, path string, value json.RawMessage) error
	Remove(ctx context.Context, scope, path string) error
	Ping(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*Memory)(nil)
	_ Store = (*SQLite)(nil)
	_ Store = (*Postgres)(nil)
)

// Open picks a backend from the server config.
func Open(ctx context.Context, cfg config.ServerConfig) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(cfg.SQLitePath)
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, errors.New("POSTGRES_DSN is required for the postgres backend")
		}
		return NewPostgres(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
