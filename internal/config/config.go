// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

// Package config loads the simulation kernel's YAML configuration: rank
// topology, patch/gate layout, checkpointing, and telemetry.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete kernel configuration for one rank.
type Config struct {
	Rank       RankConfig       `yaml:"rank"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Patches    []PatchConfig    `yaml:"patches"`
}

// RankConfig identifies this process within the simulation and bounds its
// main loop.
type RankConfig struct {
	ID            int  `yaml:"id"`
	Size          int  `yaml:"size"`
	Deterministic bool `yaml:"deterministic"`
	Safety        int  `yaml:"safety"`
}

// CheckpointConfig controls the sequencer's day-transition checkpoint hook.
type CheckpointConfig struct {
	Directory  string `yaml:"directory"`
	EveryNDays int    `yaml:"everyNDays"`
}

// TelemetryConfig configures the OTel tracer provider.
type TelemetryConfig struct {
	ServiceName  string  `yaml:"serviceName"`
	CollectorURL string  `yaml:"collectorURL"`
	SamplingRate float64 `yaml:"samplingRate"`
}

// PatchConfig describes one rank-local patch and the neighbors it gates to.
// GatesTo entries are patch names; cross-rank neighbors are written
// "rank:name".
type PatchConfig struct {
	Name       string   `yaml:"name"`
	GatesTo    []string `yaml:"gatesTo"`
	DependsOn  []string `yaml:"dependsOn"`
	Services   []string `yaml:"services"`
}

// Default returns a single-rank, single-patch configuration suitable for
// local development and the dummy transport.
func Default() *Config {
	return &Config{
		Rank: RankConfig{ID: 0, Size: 1, Deterministic: false, Safety: 100000},
		Checkpoint: CheckpointConfig{
			Directory:  "./checkpoints",
			EveryNDays: 1,
		},
		Telemetry: TelemetryConfig{
			ServiceName:  "simkernel",
			CollectorURL: "localhost:4318",
			SamplingRate: 1.0,
		},
		Patches: []PatchConfig{{Name: "main"}},
	}
}

// Load reads and parses a kernel configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Rank.Size <= 0 {
		return fmt.Errorf("rank size must be positive")
	}
	if c.Rank.ID < 0 || c.Rank.ID >= c.Rank.Size {
		return fmt.Errorf("rank id %d out of range [0,%d)", c.Rank.ID, c.Rank.Size)
	}
	if len(c.Patches) == 0 {
		return fmt.Errorf("at least one patch is required")
	}

	names := make(map[string]bool, len(c.Patches))
	for _, p := range c.Patches {
		if p.Name == "" {
			return fmt.Errorf("patch name is required")
		}
		if names[p.Name] {
			return fmt.Errorf("duplicate patch name %q", p.Name)
		}
		names[p.Name] = true
	}
	return nil
}
