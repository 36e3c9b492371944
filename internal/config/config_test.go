// Copyright (c) 2025 Open Swarm Contributors
//
// This software is released under the MIT License.
// See LICENSE file in the repository for details.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		missing     bool
		wantErr     bool
		errContains string
		validate    func(t *testing.T, cfg *Config)
	}{
		{
			name: "valid configuration file",
			content: `
rank:
  id: 1
  size: 4
  deterministic: true
  safety: 5000
checkpoint:
  directory: /tmp/ckpt
  everyNDays: 2
telemetry:
  serviceName: simkernel-test
  collectorURL: localhost:4318
  samplingRate: 0.5
patches:
  - name: PatchA
    gatesTo: [PatchB]
  - name: PatchB
    gatesTo: [PatchA]
`,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 1, cfg.Rank.ID)
				assert.Equal(t, 4, cfg.Rank.Size)
				assert.True(t, cfg.Rank.Deterministic)
				assert.Equal(t, "/tmp/ckpt", cfg.Checkpoint.Directory)
				assert.Equal(t, 0.5, cfg.Telemetry.SamplingRate)
				assert.Len(t, cfg.Patches, 2)
				assert.Equal(t, "PatchA", cfg.Patches[0].Name)
				assert.Equal(t, []string{"PatchB"}, cfg.Patches[0].GatesTo)
			},
		},
		{
			name:        "missing config file",
			missing:     true,
			wantErr:     true,
			errContains: "failed to read config file",
		},
		{
			name: "invalid yaml syntax",
			content: `
rank:
  id: [
`,
			wantErr:     true,
			errContains: "failed to parse config",
		},
		{
			name:    "minimal configuration fills defaults",
			content: `rank: {id: 0, size: 1}`,
			validate: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "simkernel", cfg.Telemetry.ServiceName)
				assert.Equal(t, "./checkpoints", cfg.Checkpoint.Directory)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "kernel.yaml")
			if !tt.missing {
				require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			}

			cfg, err := Load(path)

			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      *Config
		wantErr     bool
		errContains string
	}{
		{
			name: "valid configuration",
			config: &Config{
				Rank:    RankConfig{ID: 0, Size: 1},
				Patches: []PatchConfig{{Name: "main"}},
			},
			wantErr: false,
		},
		{
			name: "zero rank size",
			config: &Config{
				Rank:    RankConfig{ID: 0, Size: 0},
				Patches: []PatchConfig{{Name: "main"}},
			},
			wantErr:     true,
			errContains: "rank size must be positive",
		},
		{
			name: "rank id out of range",
			config: &Config{
				Rank:    RankConfig{ID: 2, Size: 2},
				Patches: []PatchConfig{{Name: "main"}},
			},
			wantErr:     true,
			errContains: "out of range",
		},
		{
			name: "no patches",
			config: &Config{
				Rank: RankConfig{ID: 0, Size: 1},
			},
			wantErr:     true,
			errContains: "at least one patch",
		},
		{
			name: "duplicate patch names",
			config: &Config{
				Rank:    RankConfig{ID: 0, Size: 1},
				Patches: []PatchConfig{{Name: "a"}, {Name: "a"}},
			},
			wantErr:     true,
			errContains: "duplicate patch name",
		},
		{
			name: "unnamed patch",
			config: &Config{
				Rank:    RankConfig{ID: 0, Size: 1},
				Patches: []PatchConfig{{Name: ""}},
			},
			wantErr:     true,
			errContains: "patch name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Rank.Size)
	assert.Equal(t, "main", cfg.Patches[0].Name)
}
