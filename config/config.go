// Package config provides configuration loading and management for Fusionpilot.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Fusionpilot configuration
type Config struct {
	NATS       NATSConfig       `yaml:"nats"`
	Render     RenderConfig     `yaml:"render"`
	Generation GenerationConfig `yaml:"generation"`
	Backends   BackendsConfig   `yaml:"backends"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = use embedded server)
	URL string `yaml:"url"`
	// Embedded indicates whether to use embedded NATS
	Embedded bool `yaml:"embedded"`
}

// RenderConfig configures preview playback limits
type RenderConfig struct {
	// CeilingSeconds caps every preview duration (1-120)
	CeilingSeconds float64 `yaml:"ceiling_seconds"`
	// FrameRate converts seconds to frames when the compositor does not
	// report one (default: 24)
	FrameRate float64 `yaml:"frame_rate"`
}

// GenerationConfig bounds image-generation calls
type GenerationConfig struct {
	// MaxSteps is the diffusion step count (default: 15, tuned for speed)
	MaxSteps int `yaml:"max_steps"`
	// Width and Height are the output dimensions (default: 512x512)
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// BackendsConfig configures backend request handling
type BackendsConfig struct {
	// RequestTimeout is the per-call deadline for compositor and
	// source-control requests (default: 30s). Generation calls are not
	// bounded; they legitimately run long.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// MetricsConfig configures the Prometheus exposition endpoint
type MetricsConfig struct {
	// Addr is the listen address for /metrics (empty = disabled)
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:      "",
			Embedded: true,
		},
		Render: RenderConfig{
			CeilingSeconds: 20,
			FrameRate:      24,
		},
		Generation: GenerationConfig{
			MaxSteps: 15,
			Width:    512,
			Height:   512,
		},
		Backends: BackendsConfig{
			RequestTimeout: 30 * time.Second,
		},
		Metrics: MetricsConfig{
			Addr: "", // Disabled
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Render.CeilingSeconds < 1 || c.Render.CeilingSeconds > 120 {
		return fmt.Errorf("render.ceiling_seconds must be between 1 and 120")
	}
	if c.Render.FrameRate <= 0 {
		return fmt.Errorf("render.frame_rate must be positive")
	}
	if c.Generation.MaxSteps <= 0 {
		return fmt.Errorf("generation.max_steps must be positive")
	}
	if c.Generation.Width <= 0 || c.Generation.Height <= 0 {
		return fmt.Errorf("generation dimensions must be positive")
	}
	if c.Backends.RequestTimeout <= 0 {
		return fmt.Errorf("backends.request_timeout must be positive")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
		c.NATS.Embedded = false
	}

	// Render
	if other.Render.CeilingSeconds != 0 {
		c.Render.CeilingSeconds = other.Render.CeilingSeconds
	}
	if other.Render.FrameRate != 0 {
		c.Render.FrameRate = other.Render.FrameRate
	}

	// Generation
	if other.Generation.MaxSteps != 0 {
		c.Generation.MaxSteps = other.Generation.MaxSteps
	}
	if other.Generation.Width != 0 {
		c.Generation.Width = other.Generation.Width
	}
	if other.Generation.Height != 0 {
		c.Generation.Height = other.Generation.Height
	}

	// Backends
	if other.Backends.RequestTimeout != 0 {
		c.Backends.RequestTimeout = other.Backends.RequestTimeout
	}

	// Metrics
	if other.Metrics.Addr != "" {
		c.Metrics.Addr = other.Metrics.Addr
	}
}
