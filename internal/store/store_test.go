package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"matchmesh/internal/config"
)

func backends(t *testing.T) map[string]func(*testing.T) Store {
	t.Helper()
	return map[string]func(*testing.T) Store{
		"memory":   func(*testing.T) Store { return NewMemory() },
		"sqlite":   func(t *testing.T) Store { return newTestSQLite(t) },
		"postgres": func(t *testing.T) Store { return newTestPostgres(t) },
	}
}

func mustRead(t *testing.T, s Store, scope, path string) map[string]any {
	t.Helper()
	raw, err := s.Read(context.Background(), scope, path)
	if err != nil {
		t.Fatalf("Read(%s, %s) error = %v", scope, path, err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return out
}

func TestStoreContract(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			if _, err := s.Read(ctx, "mm", "presence.eu1_1"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Read on empty scope error = %v, want ErrNotFound", err)
			}

			entry := json.RawMessage(`{"globalId":"eu1_1","displayName":"Ann","timestamp":1700000000000}`)
			if err := s.Write(ctx, "mm", "presence.eu1_1", entry); err != nil {
				t.Fatalf("Write error = %v", err)
			}
			if err := s.Write(ctx, "mm", "presence.eu1_2", json.RawMessage(`{"globalId":"eu1_2"}`)); err != nil {
				t.Fatalf("Write sibling error = %v", err)
			}

			got := mustRead(t, s, "mm", "presence.eu1_1")
			if got["displayName"] != "Ann" {
				t.Fatalf("displayName = %v, want Ann", got["displayName"])
			}
			ts, ok := got["timestamp"].(float64)
			if !ok || int64(ts) != 1700000000000 {
				t.Fatalf("timestamp = %v, want 1700000000000", got["timestamp"])
			}

			all := mustRead(t, s, "mm", "presence")
			if len(all) != 2 {
				t.Fatalf("presence entries = %d, want 2", len(all))
			}

			if err := s.Remove(ctx, "mm", "presence.eu1_1"); err != nil {
				t.Fatalf("Remove error = %v", err)
			}
			if _, err := s.Read(ctx, "mm", "presence.eu1_1"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Read removed leaf error = %v, want ErrNotFound", err)
			}
			if all := mustRead(t, s, "mm", "presence"); len(all) != 1 {
				t.Fatalf("presence entries after remove = %d, want 1", len(all))
			}
			if err := s.Remove(ctx, "mm", "presence.nobody"); err != nil {
				t.Fatalf("Remove missing leaf error = %v, want nil", err)
			}
		})
	}
}

func TestStoreWriteReplacesScalarIntermediate(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			if err := s.Write(ctx, "mm", "challenges", json.RawMessage(`"oops"`)); err != nil {
				t.Fatalf("Write scalar error = %v", err)
			}
			if err := s.Write(ctx, "mm", "challenges.eu1_1.abc", json.RawMessage(`{"id":"abc"}`)); err != nil {
				t.Fatalf("Write nested error = %v", err)
			}
			got := mustRead(t, s, "mm", "challenges.eu1_1.abc")
			if got["id"] != "abc" {
				t.Fatalf("id = %v, want abc", got["id"])
			}
		})
	}
}

func TestStoreScopesAreIsolated(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			ctx := context.Background()

			if err := s.Write(ctx, "a", "k", json.RawMessage(`{"v":1}`)); err != nil {
				t.Fatalf("Write error = %v", err)
			}
			if _, err := s.Read(ctx, "b", "k"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Read other scope error = %v, want ErrNotFound", err)
			}
			if err := s.Remove(ctx, "a", ""); err != nil {
				t.Fatalf("Remove scope error = %v", err)
			}
			if _, err := s.Read(ctx, "a", "k"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Read after scope removal error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStoreRejectsBadAddress(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	if err := s.Write(ctx, "", "a", json.RawMessage(`1`)); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("Write empty scope error = %v, want ErrInvalidPath", err)
	}
	if _, err := s.Read(ctx, "mm", "a..b"); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("Read bad path error = %v, want ErrInvalidPath", err)
	}
	if err := s.Write(ctx, "mm", "a", json.RawMessage(`{not json`)); err == nil {
		t.Fatal("Write malformed value error = nil, want error")
	}
}

func TestMemoryClosed(t *testing.T) {
	s := NewMemory()
	_ = s.Close()
	if err := s.Ping(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Ping after close = %v, want ErrClosed", err)
	}
	if _, err := s.Read(context.Background(), "mm", "a"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Read after close = %v, want ErrClosed", err)
	}
}

func TestOpenBackends(t *testing.T) {
	s, err := Open(context.Background(), config.ServerConfig{Backend: "memory"})
	if err != nil {
		t.Fatalf("Open(memory) error = %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Fatalf("Open(memory) = %T, want *Memory", s)
	}

	if _, err := Open(context.Background(), config.ServerConfig{Backend: "postgres"}); err == nil {
		t.Fatal("Open(postgres) without dsn error = nil")
	}
	if _, err := Open(context.Background(), config.ServerConfig{Backend: "redis"}); err == nil {
		t.Fatal("Open(redis) error = nil")
	}
}
