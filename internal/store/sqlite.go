package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite stores one JSON document per scope in a WAL-mode database file.
// Writes are read-modify-write inside a transaction, retried on contention.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS documents (
		scope      TEXT PRIMARY KEY,
		body       TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`)
	return err
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *SQLite) Read(ctx context.Context, scope, path string) (json.RawMessage, error) {
	segs, err := checkAddress(scope, path)
	if err != nil {
		return nil, err
	}
	var body string
	err = s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE scope = ?`, scope).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc, err := decodeValue([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("decode scope %q: %w", scope, err)
	}
	v, ok := lookup(doc, segs)
	if !ok {
		return nil, ErrNotFound
	}
	return json.Marshal(v)
}

func (s *SQLite) Write(ctx context.Context, scope, path string, value json.RawMessage) error {
	segs, err := checkAddress(scope, path)
	if err != nil {
		return err
	}
	v, err := decodeValue(value)
	if err != nil {
		return err
	}
	return retryOp(defaultRetryConfig, func() error {
		return s.update(ctx, scope, func(doc any) (any, bool) {
			return assign(doc, segs, v), true
		})
	})
}

func (s *SQLite) Remove(ctx context.Context, scope, path string) error {
	segs, err := checkAddress(scope, path)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		return retryOp(defaultRetryConfig, func() error {
			_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE scope = ?`, scope)
			return err
		})
	}
	return retryOp(defaultRetryConfig, func() error {
		return s.update(ctx, scope, func(doc any) (any, bool) {
			return doc, prune(doc, segs)
		})
	})
}

// update loads the scope document, applies fn and stores the result when fn
// reports a change.
func (s *SQLite) update(ctx context.Context, scope string, fn func(doc any) (any, bool)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var doc any
	var body string
	err = tx.QueryRowContext(ctx, `SELECT body FROM documents WHERE scope = ?`, scope).Scan(&body)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return err
	default:
		if doc, err = decodeValue([]byte(body)); err != nil {
			return fmt.Errorf("decode scope %q: %w", scope, err)
		}
	}

	next, changed := fn(doc)
	if !changed {
		return tx.Commit()
	}
	out, err := json.Marshal(next)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO documents (scope, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(scope) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		scope, string(out), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}
