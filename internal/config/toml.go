// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Drill     DrillConfig     `toml:"drill"`
	Scheduler SchedulerConfig `toml:"scheduler"`
}

// DrillConfig maps drill-related settings.
type DrillConfig struct {
	Opening   *string `toml:"opening"`
	Rounds    *int    `toml:"rounds"`
	RoundTime *int    `toml:"round-time"`
	WeakTop   *int    `toml:"weak-top"`
	Catalog   *string `toml:"catalog"`
}

// SchedulerConfig maps spaced-repetition scheduler settings.
type SchedulerConfig struct {
	RequestRetention *float64 `toml:"request-retention"`
	MaximumInterval  *int     `toml:"maximum-interval"`
	MasteryStability *float64 `toml:"mastery-stability"`
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
