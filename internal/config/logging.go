package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// LogConfig drives the process-wide zerolog logger. LOG_FILE adds a
// size-capped file sink next to stdout; LOG_BACKUPS rotated copies are kept.
type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0"`
	File        string `env:"LOG_FILE"`
	MaxMB       int    `env:"LOG_MAX_MB" envDefault:"10"`
	Backups     int    `env:"LOG_BACKUPS" envDefault:"1"`
}

var logLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"}

func LoadLog() (LogConfig, error) {
	var cfg LogConfig
	if err := env.Parse(&cfg); err != nil {
		return LogConfig{}, err
	}
	cfg.Level = strings.ToLower(strings.TrimSpace(cfg.Level))
	if !knownLevel(cfg.Level) {
		return LogConfig{}, fmt.Errorf("LOG_LEVEL %q: want one of %s", cfg.Level, strings.Join(logLevels, ", "))
	}
	if cfg.MaxMB < 0 || cfg.Backups < 0 {
		return LogConfig{}, fmt.Errorf("LOG_MAX_MB and LOG_BACKUPS must not be negative")
	}
	return cfg, nil
}

func knownLevel(level string) bool {
	for _, l := range logLevels {
		if l == level {
			return true
		}
	}
	return false
}
