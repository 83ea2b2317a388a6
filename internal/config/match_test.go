package config

import (
	"errors"
	"testing"
	"time"

	"matchmesh/internal/identity"
)

func TestLoadMatchDefaults(t *testing.T) {
	t.Setenv("NODE_ID", "eu1")

	cfg, err := LoadMatch()
	if err != nil {
		t.Fatalf("LoadMatch() error = %v", err)
	}
	if cfg.StoreScope != "matchmesh" {
		t.Fatalf("StoreScope = %q, want matchmesh", cfg.StoreScope)
	}
	if cfg.PresenceTTL() != 30*time.Second {
		t.Fatalf("PresenceTTL = %v, want 30s", cfg.PresenceTTL())
	}
	if cfg.ChallengeTimeout() != 2*time.Minute {
		t.Fatalf("ChallengeTimeout = %v, want 2m", cfg.ChallengeTimeout())
	}
	if cfg.ConnectTimeout() != 3*time.Second {
		t.Fatalf("ConnectTimeout = %v, want 3s", cfg.ConnectTimeout())
	}
}

func TestLoadMatchRequiresNodeID(t *testing.T) {
	t.Setenv("NODE_ID", "")

	_, err := LoadMatch()
	if err == nil {
		t.Fatal("LoadMatch() expected error, got nil")
	}
}

func TestLoadMatchRejectsUnaddressableNodeID(t *testing.T) {
	for _, node := range []string{"node_a", "eu.west", "eu.west_1"} {
		t.Run(node, func(t *testing.T) {
			t.Setenv("NODE_ID", node)
			_, err := LoadMatch()
			if !errors.Is(err, identity.ErrInvalidNodeID) {
				t.Fatalf("LoadMatch() error = %v, want ErrInvalidNodeID", err)
			}
		})
	}
}

func TestLoadMatchOverrides(t *testing.T) {
	t.Setenv("NODE_ID", "us2")
	t.Setenv("PRESENCE_TTL_MS", "1500")
	t.Setenv("CYCLE_INTERVAL_MS", "250")

	cfg, err := LoadMatch()
	if err != nil {
		t.Fatalf("LoadMatch() error = %v", err)
	}
	if cfg.PresenceTTL() != 1500*time.Millisecond {
		t.Fatalf("PresenceTTL = %v, want 1.5s", cfg.PresenceTTL())
	}
	if cfg.CycleInterval() != 250*time.Millisecond {
		t.Fatalf("CycleInterval = %v, want 250ms", cfg.CycleInterval())
	}
}
