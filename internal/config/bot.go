package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// BotConfig drives the scripted duel bot. Target is optional: when set the
// bot challenges that global id instead of waiting for invitations.
// TargetCash and TargetRep are the stakes the target has declared; the wager
// ceiling never exceeds them, so leaving them unset caps the wager at zero.
type BotConfig struct {
	LocalUser  int    `env:"BOT_USER" envDefault:"1"`
	Name       string `env:"BOT_NAME" envDefault:"bot"`
	Cash       int64  `env:"BOT_CASH" envDefault:"1000"`
	Rep        int64  `env:"BOT_REP" envDefault:"100"`
	Target     string `env:"BOT_TARGET"`
	TargetCash int64  `env:"BOT_TARGET_CASH" envDefault:"0"`
	TargetRep  int64  `env:"BOT_TARGET_REP" envDefault:"0"`
	Mode       string `env:"BOT_MODE" envDefault:"sprint"`
}

func LoadBot() (BotConfig, error) {
	var cfg BotConfig
	if err := env.Parse(&cfg); err != nil {
		return BotConfig{}, err
	}
	if cfg.Cash < 0 || cfg.Rep < 0 || cfg.TargetCash < 0 || cfg.TargetRep < 0 {
		return BotConfig{}, fmt.Errorf("bot stakes must not be negative")
	}
	return cfg, nil
}
