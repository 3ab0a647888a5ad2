package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Render.CeilingSeconds != 20 {
		t.Errorf("expected default ceiling 20, got %f", cfg.Render.CeilingSeconds)
	}
	if cfg.Render.FrameRate != 24 {
		t.Errorf("expected default frame rate 24, got %f", cfg.Render.FrameRate)
	}
	if cfg.Generation.MaxSteps != 15 {
		t.Errorf("expected default max steps 15, got %d", cfg.Generation.MaxSteps)
	}
	if cfg.Generation.Width != 512 || cfg.Generation.Height != 512 {
		t.Errorf("expected default dimensions 512x512, got %dx%d", cfg.Generation.Width, cfg.Generation.Height)
	}
	if !cfg.NATS.Embedded {
		t.Error("expected embedded NATS by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "ceiling too low",
			modify:  func(c *Config) { c.Render.CeilingSeconds = 0.5 },
			wantErr: true,
		},
		{
			name:    "ceiling too high",
			modify:  func(c *Config) { c.Render.CeilingSeconds = 121 },
			wantErr: true,
		},
		{
			name:    "negative frame rate",
			modify:  func(c *Config) { c.Render.FrameRate = -1 },
			wantErr: true,
		},
		{
			name:    "zero generation steps",
			modify:  func(c *Config) { c.Generation.MaxSteps = 0 },
			wantErr: true,
		},
		{
			name:    "zero width",
			modify:  func(c *Config) { c.Generation.Width = 0 },
			wantErr: true,
		},
		{
			name:    "zero request timeout",
			modify:  func(c *Config) { c.Backends.RequestTimeout = 0 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create temp file with config
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
nats:
  url: "nats://test:4222"
render:
  ceiling_seconds: 12
  frame_rate: 29.97
generation:
  max_steps: 20
  width: 768
  height: 432
backends:
  request_timeout: 45s
metrics:
  addr: ":9102"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if cfg.NATS.URL != "nats://test:4222" {
		t.Errorf("expected NATS URL nats://test:4222, got %s", cfg.NATS.URL)
	}
	if cfg.Render.CeilingSeconds != 12 {
		t.Errorf("expected ceiling 12, got %f", cfg.Render.CeilingSeconds)
	}
	if cfg.Render.FrameRate != 29.97 {
		t.Errorf("expected frame rate 29.97, got %f", cfg.Render.FrameRate)
	}
	if cfg.Generation.MaxSteps != 20 {
		t.Errorf("expected 20 generation steps, got %d", cfg.Generation.MaxSteps)
	}
	if cfg.Generation.Width != 768 || cfg.Generation.Height != 432 {
		t.Errorf("expected 768x432, got %dx%d", cfg.Generation.Width, cfg.Generation.Height)
	}
	if cfg.Backends.RequestTimeout != 45*time.Second {
		t.Errorf("expected timeout 45s, got %v", cfg.Backends.RequestTimeout)
	}
	if cfg.Metrics.Addr != ":9102" {
		t.Errorf("expected metrics addr :9102, got %s", cfg.Metrics.Addr)
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		NATS: NATSConfig{
			URL: "nats://remote:4222",
		},
		Render: RenderConfig{
			CeilingSeconds: 8,
		},
	}

	base.Merge(override)

	if base.NATS.URL != "nats://remote:4222" {
		t.Errorf("expected NATS URL nats://remote:4222, got %s", base.NATS.URL)
	}
	// An explicit URL disables the embedded server
	if base.NATS.Embedded {
		t.Error("expected embedded NATS to be disabled by URL override")
	}
	if base.Render.CeilingSeconds != 8 {
		t.Errorf("expected ceiling 8, got %f", base.Render.CeilingSeconds)
	}
	// Frame rate should remain from base since override didn't set it
	if base.Render.FrameRate != 24 {
		t.Errorf("expected frame rate to remain default, got %f", base.Render.FrameRate)
	}
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Render.CeilingSeconds = 15

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	// Verify file was created
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	// Load and verify
	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Render.CeilingSeconds != 15 {
		t.Errorf("expected ceiling 15, got %f", loaded.Render.CeilingSeconds)
	}
}

func TestWatcherReload(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ProjectConfigFile)

	cfg := DefaultConfig()
	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	applied := make(chan *Config, 1)
	w, err := NewWatcher(configPath, func(c *Config) {
		select {
		case applied <- c:
		default:
		}
	}, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.debounce = 20 * time.Millisecond
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	cfg.Render.CeilingSeconds = 9
	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("update config: %v", err)
	}

	select {
	case got := <-applied:
		if got.Render.CeilingSeconds != 9 {
			t.Errorf("applied ceiling = %f, want 9", got.Render.CeilingSeconds)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not applied")
	}
}

func TestWatcherRejectsInvalidUpdate(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ProjectConfigFile)

	cfg := DefaultConfig()
	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	applied := make(chan *Config, 1)
	w, err := NewWatcher(configPath, func(c *Config) { applied <- c }, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	w.debounce = 20 * time.Millisecond
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	bad := DefaultConfig()
	bad.Render.CeilingSeconds = 500
	if err := bad.SaveToFile(configPath); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}

	select {
	case got := <-applied:
		t.Fatalf("invalid config was applied: %+v", got.Render)
	case <-time.After(300 * time.Millisecond):
		// Rejected, previous config stays in effect.
	}
}
