package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
// Non-empty fields override the loaded configuration files.
type Config struct {
	ConfigPaths []string // .hcl configuration and .yaml provisioning

	Address         string
	HealthcheckPort int
	Dark            bool
	StoragePath     string
	NatsURL         string

	LogFormat string
	LogLevel  string
}

func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.ConfigPaths) == 0 && cfg.Address == "" {
		return nil, errors.New("at least one configuration path or an address is required")
	}
	return &cfg, nil
}
