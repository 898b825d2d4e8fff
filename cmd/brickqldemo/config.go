package main

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds runtime configuration for the demo CLI. It follows the
// same YAML-plus-env-override loading convention as the rest of the
// module: environment variables take precedence over demo-config.yaml.
type Config struct {
	SnapshotPath  string `yaml:"snapshot_path" env:"BRICKQL_SNAPSHOT_PATH" env-default:"cmd/brickqldemo/testdata/snapshot.yaml"`
	PolicyPath    string `yaml:"policy_path" env:"BRICKQL_POLICY_PATH" env-default:"cmd/brickqldemo/testdata/policy.yaml"`
	DialectTarget string `yaml:"dialect_target" env:"BRICKQL_DIALECT_TARGET" env-default:"sqlite"`
	MaxJoinDepth  int    `yaml:"max_join_depth" env:"BRICKQL_MAX_JOIN_DEPTH" env-default:"4"`
	MaxLimit      int    `yaml:"max_limit" env:"BRICKQL_MAX_LIMIT" env-default:"1000"`
	LogLevel      string `yaml:"log_level" env:"BRICKQL_LOG_LEVEL" env-default:"info"`
}

// Load reads demo-config.yaml if present, with BRICKQL_* environment
// variables overriding any value it sets.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadConfig("demo-config.yaml", cfg); err != nil {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read demo configuration: %w", err)
		}
	}
	return cfg, nil
}
