package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps one jsonb document per scope. Reads and removes run in SQL
// with the #> and #- path operators; writes lock the row and merge in Go.
type Postgres struct {
	Pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	p := &Postgres{Pool: pool}
	if err := p.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	_, err := p.Pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS documents (
		scope      TEXT PRIMARY KEY,
		body       JSONB NOT NULL DEFAULT '{}'::jsonb,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	return err
}

func (p *Postgres) Close() error {
	if p.Pool != nil {
		p.Pool.Close()
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.Pool.Ping(ctx)
}

func (p *Postgres) Read(ctx context.Context, scope, path string) (json.RawMessage, error) {
	segs, err := checkAddress(scope, path)
	if err != nil {
		return nil, err
	}
	if segs == nil {
		segs = []string{}
	}
	var raw []byte
	err = p.Pool.QueryRow(ctx, `SELECT body #> $2::text[] FROM documents WHERE scope = $1`, scope, segs).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	return json.RawMessage(raw), nil
}

func (p *Postgres) Write(ctx context.Context, scope, path string, value json.RawMessage) error {
	segs, err := checkAddress(scope, path)
	if err != nil {
		return err
	}
	v, err := decodeValue(value)
	if err != nil {
		return err
	}

	tx, err := p.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `INSERT INTO documents (scope) VALUES ($1) ON CONFLICT (scope) DO NOTHING`, scope); err != nil {
		return err
	}
	var body []byte
	if err := tx.QueryRow(ctx, `SELECT body FROM documents WHERE scope = $1 FOR UPDATE`, scope).Scan(&body); err != nil {
		return err
	}
	doc, err := decodeValue(body)
	if err != nil {
		return fmt.Errorf("decode scope %q: %w", scope, err)
	}
	out, err := json.Marshal(assign(doc, segs, v))
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE documents SET body = $2::jsonb, updated_at = now() WHERE scope = $1`, scope, string(out)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (p *Postgres) Remove(ctx context.Context, scope, path string) error {
	segs, err := checkAddress(scope, path)
	if err != nil {
		return err
	}
	if len(segs) == 0 {
		_, err := p.Pool.Exec(ctx, `DELETE FROM documents WHERE scope = $1`, scope)
		return err
	}
	_, err = p.Pool.Exec(ctx, `UPDATE documents SET body = body #- $2::text[], updated_at = now() WHERE scope = $1`, scope, segs)
	return err
}
