// Package config loads the JSON retention-schedule configuration
// (config.json: interval + stages[].name/.keep) via Viper and layers the
// CLI-derived overrides on top of it.
//
// Grounded in the teacher's config.go (ReadAllConfig's fail-fast
// validation and error wrapping) generalized from an INI path list to a
// Viper-backed JSON stage schedule, per
// _examples/joshyorko-rcc/conda/robocorp.go's layered viper.* usage.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"rsyncbackup/internal/stagemanager"
)

// StageSpec mirrors one entry of config.json's "stages" array.
type StageSpec struct {
	Name string `mapstructure:"name"`
	Keep int    `mapstructure:"keep"`
}

// FileConfig is config.json's schema: a base interval in seconds and a
// list of stages in retention order (finest first).
type FileConfig struct {
	Interval int64       `mapstructure:"interval"`
	Stages   []StageSpec `mapstructure:"stages"`
}

// Config is the fully resolved configuration the driver runs with: the
// file-backed retention schedule plus the CLI-derived fields the caller
// fills in after Load returns (SourcePath, BackupPath, SaveMemory, Jobs,
// IncludePaths, ExcludePaths have no file-config equivalent).
type Config struct {
	SourcePath   string
	BackupPath   string
	Interval     int64
	Stages       []stagemanager.Stage
	SaveMemory   bool
	Jobs         int
	IncludePaths []string
	ExcludePaths []string
}

// Load reads configPath (config.json) via Viper and validates the stage
// schedule. The returned Config's CLI-derived fields are zero valued; the
// caller (cmd/rsyncbackup) sets them from flags before passing it to the
// driver.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", configPath, err)
	}

	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", configPath, err)
	}

	if fc.Interval <= 0 {
		return nil, fmt.Errorf("config %s: interval must be positive", configPath)
	}
	if len(fc.Stages) == 0 {
		return nil, fmt.Errorf("config %s: stages must not be empty", configPath)
	}

	stages := make([]stagemanager.Stage, len(fc.Stages))
	for i, s := range fc.Stages {
		if s.Name == "" {
			return nil, fmt.Errorf("config %s: stage %d missing name", configPath, i)
		}
		if s.Keep <= 0 {
			return nil, fmt.Errorf("config %s: stage %q keep must be positive", configPath, s.Name)
		}
		stages[i] = stagemanager.Stage{Name: s.Name, Keep: s.Keep}
	}

	return &Config{Interval: fc.Interval, Stages: stages}, nil
}
