// Package metadata derives the immutable description of one time point's
// output image from its composite source and a representative source tile.
package metadata

import (
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"os"

	"imageassembly/internal/ometiff"
	"imageassembly/internal/pixel"
)

// ErrMetadataUnavailable means no descriptor could be built for a time point.
var ErrMetadataUnavailable = errors.New("metadata unavailable")

// Descriptor is the pixel geometry and type of one assembled image. Width and
// Height come from the composite, everything else from the representative
// tile. Format.Interleaved is always true: tile payloads handed to the writer
// are chunky regardless of how the source stores samples.
type Descriptor struct {
	Name           string
	Width          int
	Height         int
	Format         pixel.Format
	BitsPerSample  int
	Representative string
}

// Image converts the descriptor to writer input.
func (d Descriptor) Image() ometiff.Image {
	img := ometiff.Image{Name: d.Name, Width: d.Width, Height: d.Height, Format: d.Format}
	if sampleBits := d.Format.Type.BytesPerSample() * 8; d.BitsPerSample > 0 && d.BitsPerSample < sampleBits {
		img.SignificantBits = d.BitsPerSample
	}
	return img
}

// Build reads the header of representative and combines its pixel facts with the
// composite geometry of src.
func Build(src pixel.Source, representative, name string) (Descriptor, error) {
	if src == nil {
		return Descriptor{}, fmt.Errorf("%w: no pixel source", ErrMetadataUnavailable)
	}
	if representative == "" {
		return Descriptor{}, fmt.Errorf("%w: no representative tile", ErrMetadataUnavailable)
	}
	width, height := src.Width(), src.Height()
	if width <= 0 || height <= 0 {
		return Descriptor{}, fmt.Errorf("%w: composite is %dx%d", ErrMetadataUnavailable, width, height)
	}

	tile, err := readTileHeader(representative)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: %s: %w", ErrMetadataUnavailable, representative, err)
	}
	format := tile.format
	// The composite decoder drops alpha and other extra samples.
	if samples := src.Format().Samples; format.Samples > samples && format.Samples-samples <= tile.extraSamples {
		format.Samples = samples
	}
	if got, want := format.BytesPerPixel(), src.Format().BytesPerPixel(); got != want {
		return Descriptor{}, fmt.Errorf("%w: representative tile has %d bytes per pixel, composite has %d", ErrMetadataUnavailable, got, want)
	}
	format.Interleaved = true

	return Descriptor{
		Name:           name,
		Width:          width,
		Height:         height,
		Format:         format,
		BitsPerSample:  tile.bits,
		Representative: representative,
	}, nil
}

type tileHeader struct {
	format       pixel.Format
	bits         int
	extraSamples int
}

// readTileHeader recovers the acquisition pixel format. TIFF files are read through
// their directory so signedness, float samples and byte order survive; other
// formats fall back to the decoder's color model.
func readTileHeader(path string) (tileHeader, error) {
	info, err := ometiff.Probe(path)
	if err == nil {
		if info.Format.Type == pixel.Unknown {
			return tileHeader{}, fmt.Errorf("%w: %d-bit samples", ometiff.ErrUnsupportedPixelType, info.BitsPerSample)
		}
		tile := tileHeader{format: info.Format, bits: info.BitsPerSample, extraSamples: info.ExtraSamples}
		if info.OME != nil && info.OME.SignificantBits > 0 {
			tile.bits = info.OME.SignificantBits
		}
		return tile, nil
	}
	if !errors.Is(err, ometiff.ErrNotTIFF) {
		return tileHeader{}, err
	}
	return readImageConfig(path)
}

func readImageConfig(path string) (tileHeader, error) {
	file, err := os.Open(path)
	if err != nil {
		return tileHeader{}, err
	}
	defer file.Close()

	cfg, _, err := image.DecodeConfig(file)
	if err != nil {
		return tileHeader{}, fmt.Errorf("decode config: %w", err)
	}
	format, err := pixel.FormatForModel(cfg.ColorModel)
	if err != nil {
		return tileHeader{}, fmt.Errorf("%w: %v", ometiff.ErrUnsupportedPixelType, err)
	}
	return tileHeader{format: format, bits: format.Type.BytesPerSample() * 8}, nil
}
