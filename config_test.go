package tilestream_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/tilestream"
)

func TestDefaultConfig_OptionsBuildsWithoutCache(t *testing.T) {
	cfg := tilestream.DefaultConfig()
	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}
	if len(opts) == 0 {
		t.Fatalf("expected at least the base tunable options")
	}

	src := newFakeSource(t, int(cfg.TileSize))
	c, err := tilestream.NewCoordinator(src, opts...)
	if err != nil {
		t.Fatalf("NewCoordinator with default config options: %v", err)
	}
	defer c.Close()
}

func TestConfig_Options_MemoryFractionAutoSizesCache(t *testing.T) {
	cfg := tilestream.DefaultConfig()
	cfg.Cache.MemoryFraction = 0.5

	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}

	src := newFakeSource(t, int(cfg.TileSize))
	c, err := tilestream.NewCoordinator(src, opts...)
	if err != nil {
		t.Fatalf("NewCoordinator with auto-sized cache: %v", err)
	}
	defer c.Close()
}

func TestLoadConfig_UnknownCachePolicyFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tilestream.toml")
	const body = `
tile_size = 256

[cache]
policy = "not_a_real_policy"
capacity = 10
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config fixture: %v", err)
	}

	cfg, err := tilestream.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if _, err := cfg.Options(); err == nil {
		t.Fatalf("Options() with an unknown cache policy should fail")
	}
}

func TestLoadConfig_OverridesDefaultsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tilestream.toml")
	const body = `
tile_size = 512
max_pool_layers = 64
worker_thread_count = 2

[cache]
policy = "lfu"
capacity = 100
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config fixture: %v", err)
	}

	cfg, err := tilestream.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.TileSize != 512 {
		t.Errorf("TileSize = %d, want 512", cfg.TileSize)
	}
	if cfg.MaxPoolLayers != 64 {
		t.Errorf("MaxPoolLayers = %d, want 64", cfg.MaxPoolLayers)
	}
	// A field the file omits keeps DefaultConfig's value.
	if cfg.IndirectionWindowSize != tilestream.DefaultConfig().IndirectionWindowSize {
		t.Errorf("IndirectionWindowSize = %d, want the default", cfg.IndirectionWindowSize)
	}

	opts, err := cfg.Options()
	if err != nil {
		t.Fatalf("Options: %v", err)
	}

	src := newFakeSource(t, 512)
	c, err := tilestream.NewCoordinator(src, opts...)
	if err != nil {
		t.Fatalf("NewCoordinator with file-loaded config: %v", err)
	}
	defer c.Close()
}
