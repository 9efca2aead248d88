package assembly

import (
	"imageassembly/internal/config"
	"imageassembly/internal/ometiff"
)

// Options configures one pipeline run.
type Options struct {
	TilesDir     string
	StitchingDir string
	OutputDir    string

	VectorPrefix    string
	VectorSuffix    string
	OutputExtension string
	CacheTiles      int

	Writer  ometiff.Options
	Workers int
}

// OptionsFromConfig translates a validated config into pipeline options.
func OptionsFromConfig(cfg *config.Config, software string) (Options, error) {
	compression, err := ometiff.ParseCompression(cfg.Assembly.Compression)
	if err != nil {
		return Options{}, err
	}
	bigtiff, err := ometiff.ParseBigTIFFMode(cfg.Assembly.BigTIFF)
	if err != nil {
		return Options{}, err
	}
	return Options{
		TilesDir:        cfg.Paths.TilesDir,
		StitchingDir:    cfg.Paths.StitchingDir,
		OutputDir:       cfg.Paths.OutputDir,
		VectorPrefix:    cfg.Assembly.VectorPrefix,
		VectorSuffix:    cfg.Assembly.VectorSuffix,
		OutputExtension: cfg.Assembly.OutputExtension,
		CacheTiles:      cfg.Assembly.CacheTiles,
		Writer: ometiff.Options{
			TileSize:    cfg.Assembly.TileSize,
			Compression: compression,
			BigTIFF:     bigtiff,
			Software:    software,
		},
		Workers: cfg.Assembly.Workers,
	}, nil
}

// OutputName is the file name of the image assembled for a time point.
func (o Options) OutputName(timePoint string) string {
	ext := o.OutputExtension
	if ext == "" {
		ext = ".ome.tif"
	}
	return "image_" + timePoint + ext
}
