package store

import (
	"context"
	"path/filepath"
	"testing"

	"matchmesh/internal/testutil"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestPostgres(t *testing.T) *Postgres {
	t.Helper()
	st, err := NewPostgres(context.Background(), testutil.PostgresDSN(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}
