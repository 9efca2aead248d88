package config

import "imageassembly/internal/stitching"

const (
	defaultTileSize        = 1024
	defaultCompression     = "deflate"
	defaultBigTIFF         = "auto"
	defaultWorkers         = 1
	defaultOutputExtension = ".ome.tif"
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults. Input and
// output directories have no default and must come from the file or flags.
func Default() Config {
	return Config{
		Assembly: Assembly{
			TileSize:        defaultTileSize,
			Compression:     defaultCompression,
			BigTIFF:         defaultBigTIFF,
			Workers:         defaultWorkers,
			CacheTiles:      stitching.DefaultCacheTiles,
			VectorPrefix:    stitching.DefaultVectorPrefix,
			VectorSuffix:    stitching.DefaultVectorSuffix,
			OutputExtension: defaultOutputExtension,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
