package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"imageassembly/internal/ometiff"
)

// Validate ensures the configuration is usable. Directories are checked by
// ValidateRunPaths because flags may still supply them.
func (c *Config) Validate() error {
	if err := c.validateAssembly(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAssembly() error {
	a := c.Assembly
	if a.TileSize <= 0 || a.TileSize%16 != 0 {
		return fmt.Errorf("assembly.tile_size must be a positive multiple of 16, got %d", a.TileSize)
	}
	if a.TileSize > math.MaxUint16 {
		return fmt.Errorf("assembly.tile_size must be at most %d, got %d", math.MaxUint16, a.TileSize)
	}
	if _, err := ometiff.ParseCompression(a.Compression); err != nil {
		return fmt.Errorf("assembly.compression: %w", err)
	}
	if _, err := ometiff.ParseBigTIFFMode(a.BigTIFF); err != nil {
		return fmt.Errorf("assembly.bigtiff: %w", err)
	}
	if a.Workers < 1 {
		return errors.New("assembly.workers must be >= 1")
	}
	if a.CacheTiles < 0 {
		return errors.New("assembly.cache_tiles must be >= 0")
	}
	if strings.TrimSpace(a.VectorSuffix) == "" && strings.TrimSpace(a.VectorPrefix) == "" {
		return errors.New("assembly.vector_prefix and assembly.vector_suffix cannot both be empty")
	}
	if strings.ContainsAny(a.OutputExtension, `/\`) {
		return fmt.Errorf("assembly.output_extension %q must not contain path separators", a.OutputExtension)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

// ValidateRunPaths checks that every directory an assembly run needs is set.
func (c *Config) ValidateRunPaths() error {
	missing := make([]string, 0, 3)
	if c.Paths.TilesDir == "" {
		missing = append(missing, "paths.tiles_dir (--tiles)")
	}
	if c.Paths.StitchingDir == "" {
		missing = append(missing, "paths.stitching_dir (--stitching)")
	}
	if c.Paths.OutputDir == "" {
		missing = append(missing, "paths.output_dir (--output)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required directories: %s", strings.Join(missing, ", "))
	}
	return nil
}
