package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default returns a validated configuration with every default applied
func Default() *AppConfig {
	cfg := &AppConfig{}
	_, _ = cfg.Validate()
	return cfg
}

// Load reads, parses and validates a YAML config file.
// When allowMissing is set and the file does not exist, Default() is returned.
func Load(path string, allowMissing bool) (*AppConfig, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if allowMissing && errors.Is(err, os.ErrNotExist) {
			return Default(), nil, nil
		}
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, nil, fmt.Errorf("parse config: %w", err)
	}

	warnings, err := cfg.Validate()
	if err != nil {
		return nil, warnings, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, warnings, nil
}
