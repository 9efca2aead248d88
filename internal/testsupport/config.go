package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"imageassembly/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose tiles, stitching and output directories
// are fresh temp directories. Options run after the directories exist.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.TilesDir = filepath.Join(base, "tiles")
	cfgVal.Paths.StitchingDir = filepath.Join(base, "stitching")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	for _, dir := range []string{cfgVal.Paths.TilesDir, cfgVal.Paths.StitchingDir, cfgVal.Paths.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTileSize overrides the output tile size.
func WithTileSize(size int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Assembly.TileSize = size
	}
}

// WithCompression overrides the output codec.
func WithCompression(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Assembly.Compression = name
	}
}

// WithWorkers overrides the number of time points assembled concurrently.
func WithWorkers(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Assembly.Workers = n
	}
}

// WithLogDir enables file logging under the test's base directory.
func WithLogDir() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.LogDir = filepath.Join(b.baseDir, "logs")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.TilesDir)
}
