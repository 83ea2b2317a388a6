package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"matchmesh/internal/identity"
)

// MatchConfig configures a hosting node: where the shared store lives and
// the timing constants of presence and challenge negotiation.
type MatchConfig struct {
	NodeID   string `env:"NODE_ID,required,notEmpty"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	StoreURL   string `env:"STORE_URL" envDefault:"ws://localhost:8090/ws"`
	StoreScope string `env:"STORE_SCOPE" envDefault:"matchmesh"`

	PresenceTTLMS       int `env:"PRESENCE_TTL_MS" envDefault:"30000"`
	ChallengeTimeoutMS  int `env:"CHALLENGE_TIMEOUT_MS" envDefault:"120000"`
	ConnectTimeoutMS    int `env:"CONNECT_TIMEOUT_MS" envDefault:"3000"`
	OpTimeoutMS         int `env:"OP_TIMEOUT_MS" envDefault:"2000"`
	ReconnectAfterMS    int `env:"RECONNECT_AFTER_MS" envDefault:"5000"`
	HeartbeatIntervalMS int `env:"HEARTBEAT_INTERVAL_MS" envDefault:"10000"`
	CycleIntervalMS     int `env:"CYCLE_INTERVAL_MS" envDefault:"1000"`
}

func LoadMatch() (MatchConfig, error) {
	var cfg MatchConfig
	if err := env.Parse(&cfg); err != nil {
		return MatchConfig{}, err
	}
	if err := identity.ValidateNodeID(cfg.NodeID); err != nil {
		return MatchConfig{}, fmt.Errorf("NODE_ID: %w", err)
	}
	return cfg, nil
}

func (c MatchConfig) PresenceTTL() time.Duration       { return ms(c.PresenceTTLMS) }
func (c MatchConfig) ChallengeTimeout() time.Duration  { return ms(c.ChallengeTimeoutMS) }
func (c MatchConfig) ConnectTimeout() time.Duration    { return ms(c.ConnectTimeoutMS) }
func (c MatchConfig) OpTimeout() time.Duration         { return ms(c.OpTimeoutMS) }
func (c MatchConfig) ReconnectAfter() time.Duration    { return ms(c.ReconnectAfterMS) }
func (c MatchConfig) HeartbeatInterval() time.Duration { return ms(c.HeartbeatIntervalMS) }
func (c MatchConfig) CycleInterval() time.Duration     { return ms(c.CycleIntervalMS) }

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}
