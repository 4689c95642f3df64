// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Task TaskConfig `toml:"task"`
	Log  LogConfig  `toml:"log"`
}

// TaskConfig maps reaction-task settings.
type TaskConfig struct {
	Keys         *string  `toml:"keys"`
	Trials       *int     `toml:"trials"`
	ForeMin      *float64 `toml:"fore-min"`
	ForeMax      *float64 `toml:"fore-max"`
	Capacity     *int     `toml:"capacity"`
	ReleaseAfter *float64 `toml:"release-after"`
	FocusSlow    *bool    `toml:"focus-slow"`
	SlowTop      *int     `toml:"slow-top"`
	SlowFactor   *float64 `toml:"slow-factor"`
	SlowWindow   *int     `toml:"slow-window"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level  *string `toml:"level"`
	Format *string `toml:"format"`
	File   *string `toml:"file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
