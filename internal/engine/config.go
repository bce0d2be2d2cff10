package engine

import "errors"

// Config holds all the necessary configuration for an Engine instance to run.
type Config struct {
	ManifestPath string // hcl step descriptor files

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.ManifestPath == "" {
		return nil, errors.New("ManifestPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
