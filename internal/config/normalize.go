package config

import (
	"fmt"
	"os"
	"strings"
)

// Normalize expands paths and fills blank values with defaults. Load calls
// it; callers that override fields after Load call it again.
func (c *Config) Normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAssembly()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key   string
		value *string
	}{
		{"paths.tiles_dir", &c.Paths.TilesDir},
		{"paths.stitching_dir", &c.Paths.StitchingDir},
		{"paths.output_dir", &c.Paths.OutputDir},
		{"paths.log_dir", &c.Paths.LogDir},
	}
	for _, field := range fields {
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeAssembly() {
	c.Assembly.Compression = strings.ToLower(strings.TrimSpace(c.Assembly.Compression))
	if c.Assembly.Compression == "" {
		c.Assembly.Compression = defaultCompression
	}
	c.Assembly.BigTIFF = strings.ToLower(strings.TrimSpace(c.Assembly.BigTIFF))
	if c.Assembly.BigTIFF == "" {
		c.Assembly.BigTIFF = defaultBigTIFF
	}
	if c.Assembly.TileSize == 0 {
		c.Assembly.TileSize = defaultTileSize
	}
	if c.Assembly.Workers == 0 {
		c.Assembly.Workers = defaultWorkers
	}
	if strings.TrimSpace(c.Assembly.OutputExtension) == "" {
		c.Assembly.OutputExtension = defaultOutputExtension
	}
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("IMAGEASSEMBLY_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
