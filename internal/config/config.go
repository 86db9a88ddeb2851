// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package config loads and defaults the project-level configuration for
// codegraph: search limits, pool sizing, batching, watch debounce, and
// impact-analysis tuning. Values come from a YAML file at
// .codegraph/config.yaml, overlaid on compiled-in defaults, and then
// overlaid again by environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable named in the system's defaults table.
type Config struct {
	Search  SearchConfig  `yaml:"search"`
	Store   StoreConfig   `yaml:"store"`
	Index   IndexConfig   `yaml:"index"`
	Watch   WatchConfig   `yaml:"watch"`
	Impact  ImpactConfig  `yaml:"impact"`
	Logging LoggingConfig `yaml:"logging"`
}

// SearchConfig bounds grep/text-search requests.
type SearchConfig struct {
	PatternMaxLength int `yaml:"pattern_max_length"`
	TimeoutSecs      int `yaml:"timeout_secs"`
}

// StoreConfig sizes the reader pool in front of the embedded database.
type StoreConfig struct {
	PoolSize    int `yaml:"pool_size"`
	PoolMinIdle int `yaml:"pool_min_idle"`
}

// IndexConfig controls batch-writer flush thresholds during indexing.
type IndexConfig struct {
	BatchSize        int `yaml:"batch_size"`
	FlushIntervalMS  int `yaml:"flush_interval_ms"`
	BatchMemLimitMB  int `yaml:"batch_mem_limit_mb"`
	LargeFileSkipMB  int `yaml:"large_file_skip_mb"`
}

// WatchConfig controls the filesystem watch loop's debounce behavior.
type WatchConfig struct {
	UrgentDebounceMS int `yaml:"urgent_debounce_ms"`
	NormalDebounceMS int `yaml:"normal_debounce_ms"`
	UrgentWindowSecs int `yaml:"urgent_window_secs"`
	BatchThreshold   int `yaml:"batch_threshold"`
	FallbackPollSecs int `yaml:"fallback_poll_secs"`
}

// ImpactConfig tunes analyze_impact's blast-radius BFS.
type ImpactConfig struct {
	BFSMaxDepth    int             `yaml:"bfs_max_depth"`
	PerHopDecay    float64         `yaml:"per_hop_decay"`
	MaxNodes       int             `yaml:"max_nodes"`
	LayerEnabled   map[string]bool `yaml:"layer_enabled"`
}

// LoggingConfig controls the slog handler used across commands.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DefaultConfig returns the compiled-in defaults from the tuning table.
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			PatternMaxLength: 10_000,
			TimeoutSecs:      30,
		},
		Store: StoreConfig{
			PoolSize:    10,
			PoolMinIdle: 2,
		},
		Index: IndexConfig{
			BatchSize:       100,
			FlushIntervalMS: 500,
			BatchMemLimitMB: 10,
			LargeFileSkipMB: 10,
		},
		Watch: WatchConfig{
			UrgentDebounceMS: 50,
			NormalDebounceMS: 300,
			UrgentWindowSecs: 60,
			BatchThreshold:   1000,
			FallbackPollSecs: 300,
		},
		Impact: ImpactConfig{
			BFSMaxDepth: 3,
			PerHopDecay: 0.7,
			MaxNodes:    500,
			LayerEnabled: map[string]bool{
				"direct":     true,
				"test":       true,
				"historical": true,
				"semantic":   true,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads .codegraph/config.yaml under root, falling back to defaults
// when the file does not exist, then applies environment overrides.
func Load(root string) (*Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(root, ".codegraph", "config.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes cfg as YAML to .codegraph/config.yaml under root.
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ".codegraph")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CODEGRAPH_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Store.PoolSize = n
		}
	}
	if v := os.Getenv("CODEGRAPH_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Index.BatchSize = n
		}
	}
	if v := os.Getenv("CODEGRAPH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CODEGRAPH_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
}
