// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// DEMO CONFIGURATION
// =============================================================================

// Config holds the demo's tunables, loaded from TOML with env overrides.
type Config struct {
	// DebounceMs is how long to wait after the last keystroke before
	// kicking off a rebuild.
	DebounceMs int `toml:"debounce_ms"`

	// BuildMs is how long the simulated rebuild takes.
	BuildMs int `toml:"build_ms"`

	// WatchDir is the directory whose changes feed the watch pane.
	// Empty disables the watch pane.
	WatchDir string `toml:"watch_dir"`

	// WatchWindowMs is the coalescing window for file-change batches.
	WatchWindowMs int `toml:"watch_window_ms"`

	// HistoryLimit caps how many finished builds the tracker retains.
	HistoryLimit int `toml:"history_limit"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		DebounceMs:    300,
		BuildMs:       1500,
		WatchWindowMs: 200,
		HistoryLimit:  50,
	}
}

// ConfigPath returns the demo config location (~/.rigflow/demo.toml).
func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".rigflow", "demo.toml"), nil
}

// Load reads the config file if present, applies env overrides, validates.
// A missing file is not an error; defaults are used.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if _, err := toml.DecodeFile(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", path, err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ApplyEnvOverrides applies RIGFLOW_* environment variables over the config.
func (c *Config) ApplyEnvOverrides() {
	if dir := os.Getenv("RIGFLOW_WATCH_DIR"); dir != "" {
		c.WatchDir = dir
	}
	if ms := os.Getenv("RIGFLOW_DEBOUNCE_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil {
			c.DebounceMs = v
		}
	}
	if ms := os.Getenv("RIGFLOW_BUILD_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil {
			c.BuildMs = v
		}
	}
}

// Validate clamps out-of-range values to sane bounds.
func (c *Config) Validate() error {
	if c.DebounceMs < 0 || c.BuildMs < 0 || c.WatchWindowMs < 0 {
		return fmt.Errorf("durations must be non-negative")
	}
	if c.DebounceMs == 0 {
		c.DebounceMs = Default().DebounceMs
	}
	if c.BuildMs == 0 {
		c.BuildMs = Default().BuildMs
	}
	if c.WatchWindowMs == 0 {
		c.WatchWindowMs = Default().WatchWindowMs
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = Default().HistoryLimit
	}
	if c.WatchDir != "" {
		if info, err := os.Stat(c.WatchDir); err != nil || !info.IsDir() {
			return fmt.Errorf("watch_dir %q is not a directory", c.WatchDir)
		}
	}
	return nil
}

// Debounce returns the keystroke debounce as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// Build returns the simulated build time as a duration.
func (c *Config) Build() time.Duration {
	return time.Duration(c.BuildMs) * time.Millisecond
}

// WatchWindow returns the file-change coalescing window as a duration.
func (c *Config) WatchWindow() time.Duration {
	return time.Duration(c.WatchWindowMs) * time.Millisecond
}
