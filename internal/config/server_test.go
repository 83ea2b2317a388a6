package config

import "testing"

func TestLoadServerDefaults(t *testing.T) {
	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":8090" {
		t.Fatalf("HTTPAddr = %q, want :8090", cfg.HTTPAddr)
	}
	if cfg.Backend != "memory" {
		t.Fatalf("Backend = %q, want memory", cfg.Backend)
	}
	if cfg.MaxFrameBytes != 1<<20 {
		t.Fatalf("MaxFrameBytes = %d, want %d", cfg.MaxFrameBytes, 1<<20)
	}
}

func TestLoadServerParseTypes(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/mm.db")
	t.Setenv("WS_MAX_FRAME_BYTES", "4096")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.Backend != "sqlite" || cfg.SQLitePath != "/tmp/mm.db" {
		t.Fatalf("unexpected backend config: %+v", cfg)
	}
	if cfg.MaxFrameBytes != 4096 {
		t.Fatalf("MaxFrameBytes = %d, want 4096", cfg.MaxFrameBytes)
	}
}
