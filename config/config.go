// Package config loads and validates engine configuration from a JSON file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Limits enforced by Validate
const (
	MaxTargetFPS         = 240
	MaxOptimizationLevel = 3
)

// Config mirrors the engine settings file
type Config struct {
	MaxPatterns       int  `json:"max_patterns"`
	TargetFPS         int  `json:"target_fps"`
	UseModernAPI      bool `json:"use_modern_api"`
	Debug             bool `json:"debug"`
	OptimizationLevel int  `json:"optimization_level"`
	AutoPlay          bool `json:"auto_play"`

	// StaticTextures keeps the texture rasterized at load time instead of
	// following the animated frame
	StaticTextures bool `json:"static_textures"`
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		MaxPatterns:       100,
		TargetFPS:         60,
		UseModernAPI:      true,
		Debug:             false,
		OptimizationLevel: 1,
		AutoPlay:          true,
		StaticTextures:    false,
	}
}

// Load reads path over the defaults; a missing file yields the defaults
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as indented JSON, creating parent directories
func Save(cfg Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// Validate checks value ranges
func (c Config) Validate() error {
	var errs []error
	if c.MaxPatterns < 1 {
		errs = append(errs, fmt.Errorf("max_patterns must be positive, got %d", c.MaxPatterns))
	}
	if c.TargetFPS < 1 || c.TargetFPS > MaxTargetFPS {
		errs = append(errs, fmt.Errorf("target_fps must be in [1, %d], got %d", MaxTargetFPS, c.TargetFPS))
	}
	if c.OptimizationLevel < 0 || c.OptimizationLevel > MaxOptimizationLevel {
		errs = append(errs, fmt.Errorf("optimization_level must be in [0, %d], got %d", MaxOptimizationLevel, c.OptimizationLevel))
	}
	return errors.Join(errs...)
}
