// Copyright 2026 The Attune Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 8318, cfg.Port)
	assert.Equal(t, "sqlite3", cfg.Store.Driver)
}

func TestLoadConfig_MergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
port: 9000
debug: true
model:
  min-samples-per-stat: 5
store:
  driver: pgx
  dsn: postgres://localhost/attune
  schema: attune
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.Debug)
	assert.Equal(t, 5, cfg.Model.MinSamplesPerStat)
	assert.Equal(t, "pgx", cfg.Store.Driver)
	assert.Equal(t, "attune", cfg.Store.Schema)

	// Untouched sections keep their defaults.
	assert.Equal(t, 90, cfg.Events.RetentionDays)
	assert.Equal(t, 45, cfg.Calibration.DefaultMinutesMedium)
	assert.Equal(t, 5, cfg.Notifications.MaxPerHour)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	path := writeConfig(t, "port: [not a number\n")

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"negative port", func(c *Config) { c.Port = -1 }, "invalid port"},
		{"port too large", func(c *Config) { c.Port = 70000 }, "invalid port"},
		{"zero min samples", func(c *Config) { c.Model.MinSamplesPerStat = 0 }, "min-samples-per-stat"},
		{"empty type band", func(c *Config) { c.Calibration.TypeNeutralLow = 1.3 }, "type neutral band"},
		{"empty size band", func(c *Config) { c.Calibration.SizeNeutralLow = 1.5 }, "size neutral band"},
		{"zero hourly cap", func(c *Config) { c.Notifications.MaxPerHour = 0 }, "caps must be positive"},
		{"bad rebuild interval", func(c *Config) { c.Model.RebuildInterval = "daily" }, "rebuild-interval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
