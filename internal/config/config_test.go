package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"imageassembly/internal/config"
)

func TestLoadDefaultConfigWhenAbsent(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if want := filepath.Join(tempHome, ".config", "imageassembly", "config.toml"); resolved != want {
		t.Fatalf("resolved = %q, want %q", resolved, want)
	}
	def := config.Default()
	if cfg.Assembly != def.Assembly {
		t.Fatalf("assembly = %+v, want defaults %+v", cfg.Assembly, def.Assembly)
	}
	if cfg.Assembly.TileSize != 1024 || cfg.Assembly.Compression != "deflate" || cfg.Assembly.OutputExtension != ".ome.tif" {
		t.Fatalf("unexpected assembly defaults: %+v", cfg.Assembly)
	}
	if cfg.Paths.OutputDir != "" {
		t.Fatalf("expected no default output dir, got %q", cfg.Paths.OutputDir)
	}
	if err := cfg.ValidateRunPaths(); err == nil {
		t.Fatal("expected missing directories to fail run validation")
	}
}

func TestLoadCustomPathExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := filepath.Join(t.TempDir(), "custom.toml")
	content := `
[paths]
tiles_dir = "~/tiles"
stitching_dir = "~/stitching"
output_dir = "~/out"

[assembly]
tile_size = 512
compression = "ZSTD"
workers = 4

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved = %q exists = %v", resolved, exists)
	}
	if cfg.Paths.TilesDir != filepath.Join(tempHome, "tiles") {
		t.Fatalf("unexpected tiles dir: %q", cfg.Paths.TilesDir)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempHome, "out") {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.Assembly.TileSize != 512 || cfg.Assembly.Compression != "zstd" || cfg.Assembly.Workers != 4 {
		t.Fatalf("unexpected assembly: %+v", cfg.Assembly)
	}
	if cfg.Assembly.BigTIFF != "auto" {
		t.Fatalf("expected bigtiff default to survive partial file, got %q", cfg.Assembly.BigTIFF)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging: %+v", cfg.Logging)
	}
	if err := cfg.ValidateRunPaths(); err != nil {
		t.Fatalf("ValidateRunPaths: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if info, err := os.Stat(cfg.Paths.OutputDir); err != nil || !info.IsDir() {
		t.Fatalf("expected output dir to exist: %v", err)
	}
	if _, err := os.Stat(cfg.Paths.TilesDir); !os.IsNotExist(err) {
		t.Fatalf("input directories must not be created, stat err = %v", err)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.toml")
	if err := os.WriteFile(path, []byte("[assembly]\ntile_sise = 512\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestEnvOverridesLogLevel(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("IMAGEASSEMBLY_LOG_LEVEL", "WARN")
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[logging]\nlevel = \"debug\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Logging.Level != "warn" {
		t.Fatalf("expected env level, got %q", cfg.Logging.Level)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "img-global-positions-") {
		t.Fatalf("sample config missing vector prefix: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Assembly != config.Default().Assembly {
		t.Fatalf("sample assembly %+v drifted from defaults %+v", cfg.Assembly, config.Default().Assembly)
	}
	if !strings.Contains(cfg.Paths.OutputDir, "assembled") {
		t.Fatalf("unexpected sample output dir %q", cfg.Paths.OutputDir)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"tile size not multiple of 16": func(c *config.Config) { c.Assembly.TileSize = 1000 },
		"negative tile size":           func(c *config.Config) { c.Assembly.TileSize = -16 },
		"tile size above tiff limit":   func(c *config.Config) { c.Assembly.TileSize = 65536 },
		"unknown compression":          func(c *config.Config) { c.Assembly.Compression = "lzw" },
		"unknown bigtiff":              func(c *config.Config) { c.Assembly.BigTIFF = "sometimes" },
		"no workers":                   func(c *config.Config) { c.Assembly.Workers = 0 },
		"negative cache":               func(c *config.Config) { c.Assembly.CacheTiles = -1 },
		"empty vector naming":          func(c *config.Config) { c.Assembly.VectorPrefix, c.Assembly.VectorSuffix = "", "" },
		"extension with separator":     func(c *config.Config) { c.Assembly.OutputExtension = "/x.tif" },
		"unknown level":                func(c *config.Config) { c.Logging.Level = "verbose" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.Assembly.TileSize = 65520
	if err := cfg.Validate(); err != nil {
		t.Fatalf("largest tile size should validate: %v", err)
	}
}
