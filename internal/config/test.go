package config

import "github.com/caarlos0/env/v11"

// TestConfig points database-backed tests at a scratch Postgres. Each test
// gets its own schema named SchemaPrefix_<nanos>.
type TestConfig struct {
	PostgresDSN  string `env:"TEST_POSTGRES_DSN,required,notEmpty"`
	SchemaPrefix string `env:"TEST_SCHEMA_PREFIX" envDefault:"matchmesh_test"`
	KeepSchema   bool   `env:"TEST_KEEP_SCHEMA" envDefault:"false"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	if err := env.Parse(&cfg); err != nil {
		return TestConfig{}, err
	}
	return cfg, nil
}
