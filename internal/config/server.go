package config

import "github.com/caarlos0/env/v11"

// ServerConfig configures the keyed-store server.
type ServerConfig struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8090"`

	Backend     string `env:"STORE_BACKEND" envDefault:"memory"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"matchmesh.db"`
	PostgresDSN string `env:"POSTGRES_DSN"`

	MaxFrameBytes int64 `env:"WS_MAX_FRAME_BYTES" envDefault:"1048576"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
