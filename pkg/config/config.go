// Package config manages the opsgraph configuration: a TOML file, OPSGRAPH_*
// environment variables, and CLI flags layered through viper, with defaults
// derived from a single constructor.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const configFile = "config.toml"

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and unsupported.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}

// EncodeTOML renders a Config as TOML bytes.
func EncodeTOML(cfg *Config) ([]byte, error) {
	if cfg == nil {
		return nil, errors.New("cannot encode nil config")
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteConfig persists the configuration to config.toml in dir, creating the
// directory if needed. Used by "opsgraph init".
func WriteConfig(dir string, cfg *Config) (string, error) {
	data, err := EncodeTOML(cfg)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	path := filepath.Join(dir, configFile)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("writing config: %w", err)
	}

	return path, nil
}

// DefaultConfigDir returns ~/.opsgraph, the directory "opsgraph init" writes
// to and InitViper searches after the working directory.
func DefaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home dir: %w", err)
	}
	return filepath.Join(home, ".opsgraph"), nil
}
