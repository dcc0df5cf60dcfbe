// Copyright 2026 The Attune Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the attune server.
// It handles loading and parsing YAML configuration files, and provides
// structured access to engine tuning knobs: aggregation lookback windows,
// calibration neutral bands, notification caps, and storage settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Host is the network host/interface on which the API server will bind.
	// Default is empty ("") to bind all interfaces. Use "127.0.0.1" for local-only access.
	Host string `yaml:"host" json:"-"`
	// Port is the network port on which the API server will listen.
	Port int `yaml:"port" json:"-"`

	// Debug enables or disables debug-level logging and other debug features.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile controls whether application logs are written to rotating files or stdout.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// LogsMaxTotalSizeMB limits the total size (in MB) of log files under the logs directory.
	// Set to 0 to disable.
	LogsMaxTotalSizeMB int `yaml:"logs-max-total-size-mb" json:"logs-max-total-size-mb"`

	// Events configures the behavioral event store.
	Events EventsConfig `yaml:"events" json:"events"`

	// Model configures the model builder lifecycle and aggregation windows.
	Model ModelConfig `yaml:"model" json:"model"`

	// Calibration configures the estimation calibrator's bands and defaults.
	Calibration CalibrationConfig `yaml:"calibration" json:"calibration"`

	// Notifications configures default delivery caps and batching.
	Notifications NotificationsConfig `yaml:"notifications" json:"notifications"`

	// Store configures the SQL persistence layer.
	Store StoreConfig `yaml:"store" json:"store"`

	// Templates is the path to the YAML message template registry.
	// Empty disables template-driven phrasing.
	Templates string `yaml:"templates" json:"templates"`
}

// EventsConfig configures the append-only behavioral event log.
type EventsConfig struct {
	// BaseDir is the directory holding per-user event logs.
	BaseDir string `yaml:"base-dir" json:"base-dir"`
	// RetentionDays controls how long raw events are kept before cleanup.
	RetentionDays int `yaml:"retention-days" json:"retention-days"`
	// Compression enables gzip compression of rotated event log segments.
	Compression bool `yaml:"compression" json:"compression"`
	// MaxLogSizeMB triggers rotation of the event log when exceeded.
	MaxLogSizeMB int `yaml:"max-log-size-mb" json:"max-log-size-mb"`
}

// ModelConfig configures the model builder.
type ModelConfig struct {
	// RebuildInterval is how often user models are recomputed in the background.
	RebuildInterval string `yaml:"rebuild-interval" json:"rebuild-interval"`
	// EventLookbackDays bounds the window of behavioral events folded into a model.
	EventLookbackDays int `yaml:"event-lookback-days" json:"event-lookback-days"`
	// EstimationLookbackDays bounds the window of estimation records used for accuracy stats.
	EstimationLookbackDays int `yaml:"estimation-lookback-days" json:"estimation-lookback-days"`
	// ContextLookbackDays bounds the window used by the context calibration factor.
	ContextLookbackDays int `yaml:"context-lookback-days" json:"context-lookback-days"`
	// MinSamplesPerStat is the floor below which a statistic stays neutral.
	MinSamplesPerStat int `yaml:"min-samples-per-stat" json:"min-samples-per-stat"`
}

// CalibrationConfig configures the estimation calibrator.
// The neutral bands define the accuracy range treated as "already calibrated";
// outside the band the engine compensates with multiplier = 1/accuracy.
type CalibrationConfig struct {
	// TypeNeutralLow and TypeNeutralHigh bound the per-task-type neutral band.
	TypeNeutralLow  float64 `yaml:"type-neutral-low" json:"type-neutral-low"`
	TypeNeutralHigh float64 `yaml:"type-neutral-high" json:"type-neutral-high"`
	// SizeNeutralLow and SizeNeutralHigh bound the per-size neutral band.
	SizeNeutralLow  float64 `yaml:"size-neutral-low" json:"size-neutral-low"`
	SizeNeutralHigh float64 `yaml:"size-neutral-high" json:"size-neutral-high"`
	// DefaultMinutesSmall/Medium/Large are the base estimates when a task
	// carries no estimate of its own.
	DefaultMinutesSmall  int `yaml:"default-minutes-small" json:"default-minutes-small"`
	DefaultMinutesMedium int `yaml:"default-minutes-medium" json:"default-minutes-medium"`
	DefaultMinutesLarge  int `yaml:"default-minutes-large" json:"default-minutes-large"`
}

// NotificationsConfig configures notification scheduling defaults.
type NotificationsConfig struct {
	// MaxPerHour is the default hourly delivery cap per user.
	MaxPerHour int `yaml:"max-per-hour" json:"max-per-hour"`
	// MaxPerDay is the default daily delivery cap per user.
	MaxPerDay int `yaml:"max-per-day" json:"max-per-day"`
	// BatchingIntervalMinutes is the default grouping window.
	BatchingIntervalMinutes int `yaml:"batching-interval-minutes" json:"batching-interval-minutes"`
}

// StoreConfig configures the SQL persistence layer backing models,
// estimation records, suggestion history, and sent notifications.
type StoreConfig struct {
	// Driver selects the database/sql driver: "sqlite3" (local, default) or "pgx" (Postgres).
	Driver string `yaml:"driver" json:"driver"`
	// DSN is the driver-specific data source name. For sqlite3 this is a file path.
	DSN string `yaml:"dsn" json:"dsn"`
	// Schema optionally namespaces tables (Postgres only).
	Schema string `yaml:"schema" json:"schema"`
}

// DefaultConfig returns a configuration populated with engine defaults.
func DefaultConfig() *Config {
	return &Config{
		Port: 8318,
		Events: EventsConfig{
			BaseDir:       ".attune/events",
			RetentionDays: 90,
			Compression:   true,
			MaxLogSizeMB:  100,
		},
		Model: ModelConfig{
			RebuildInterval:        "24h",
			EventLookbackDays:      30,
			EstimationLookbackDays: 90,
			ContextLookbackDays:    60,
			MinSamplesPerStat:      3,
		},
		Calibration: CalibrationConfig{
			TypeNeutralLow:       0.8,
			TypeNeutralHigh:      1.2,
			SizeNeutralLow:       0.7,
			SizeNeutralHigh:      1.3,
			DefaultMinutesSmall:  15,
			DefaultMinutesMedium: 45,
			DefaultMinutesLarge:  120,
		},
		Notifications: NotificationsConfig{
			MaxPerHour:              5,
			MaxPerDay:               20,
			BatchingIntervalMinutes: 30,
		},
		Store: StoreConfig{
			Driver: "sqlite3",
			DSN:    ".attune/attune.db",
		},
	}
}

// LoadConfig reads the YAML configuration file at path and merges it over
// the defaults. A missing file is not an error; defaults are returned.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints that YAML decoding cannot express.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.Model.MinSamplesPerStat < 1 {
		return fmt.Errorf("min-samples-per-stat must be >= 1, got %d", c.Model.MinSamplesPerStat)
	}
	if c.Calibration.TypeNeutralLow >= c.Calibration.TypeNeutralHigh {
		return fmt.Errorf("type neutral band is empty: [%.2f, %.2f]",
			c.Calibration.TypeNeutralLow, c.Calibration.TypeNeutralHigh)
	}
	if c.Calibration.SizeNeutralLow >= c.Calibration.SizeNeutralHigh {
		return fmt.Errorf("size neutral band is empty: [%.2f, %.2f]",
			c.Calibration.SizeNeutralLow, c.Calibration.SizeNeutralHigh)
	}
	if c.Notifications.MaxPerHour <= 0 || c.Notifications.MaxPerDay <= 0 {
		return fmt.Errorf("notification caps must be positive")
	}
	if c.Model.RebuildInterval != "" {
		if _, err := time.ParseDuration(c.Model.RebuildInterval); err != nil {
			return fmt.Errorf("invalid rebuild-interval %q: %w", c.Model.RebuildInterval, err)
		}
	}
	return nil
}
