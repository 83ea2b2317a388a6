package config

import "testing"

func TestLoadLogDefaults(t *testing.T) {
	cfg, err := LoadLog()
	if err != nil {
		t.Fatalf("LoadLog() error = %v", err)
	}
	if cfg.Level != "info" || cfg.MaxMB != 10 || cfg.Backups != 1 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadLogParse(t *testing.T) {
	t.Setenv("LOG_LEVEL", " DEBUG ")
	t.Setenv("LOG_FILE", "/tmp/matchd.log")
	t.Setenv("LOG_BACKUPS", "3")

	cfg, err := LoadLog()
	if err != nil {
		t.Fatalf("LoadLog() error = %v", err)
	}
	if cfg.Level != "debug" || cfg.File != "/tmp/matchd.log" || cfg.Backups != 3 {
		t.Fatalf("unexpected log config: %+v", cfg)
	}
}

func TestLoadLogRejectsBadValues(t *testing.T) {
	tests := map[string][2]string{
		"unknown level":    {"LOG_LEVEL", "loud"},
		"negative backups": {"LOG_BACKUPS", "-1"},
		"negative size":    {"LOG_MAX_MB", "-5"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			if _, err := LoadLog(); err == nil {
				t.Fatalf("LoadLog() with %s=%s: expected error", kv[0], kv[1])
			}
		})
	}
}
