// Package config loads store configuration from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	// Path is the store's data directory.
	Path string `yaml:"path"`
	// MinimumFreeGB is the free-space threshold checked when the store is
	// created or opened.
	MinimumFreeGB uint `yaml:"minimumFreeGB"`
	// LogLevel is a logrus level name ("debug", "info", ...).
	LogLevel string `yaml:"logLevel"`
}

// Load reads and parses the config file, filling in defaults for anything the
// file leaves at its zero value.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	config.applyDefaults()

	if config.Path == "" {
		return Config{}, fmt.Errorf("config: %s does not set a store path", path)
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.MinimumFreeGB == 0 {
		c.MinimumFreeGB = 1
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
