package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ConfigPath locates the settings .hcl file.
	ConfigPath string
	// BasePath anchors relative paths in the settings file.
	BasePath string
	// RegionMapping names which configured mapping to use; empty selects
	// the first one.
	RegionMapping string

	LogFormat string
	LogLevel  string
	Workers   int
}

// NewConfig validates a Config.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ConfigPath == "" {
		return nil, errors.New("ConfigPath is a required configuration field and cannot be empty")
	}
	return &cfg, nil
}
