package ometiff_test

import (
	"bytes"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	xtiff "golang.org/x/image/tiff"

	"imageassembly/internal/grid"
	"imageassembly/internal/ometiff"
	"imageassembly/internal/pixel"
)

func patternCanvas(t *testing.T, width, height int, f pixel.Format) *pixel.Memory {
	t.Helper()
	data := make([]byte, f.RegionSize(width, height))
	for i := range data {
		data[i] = byte((i*7 + i/13) % 251)
	}
	src, err := pixel.NewMemory(width, height, f, data)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	return src
}

func writeCanvas(t *testing.T, path string, src pixel.Source, opts ometiff.Options) {
	t.Helper()
	img := ometiff.Image{Name: filepath.Base(path), Width: src.Width(), Height: src.Height(), Format: src.Format()}
	w, err := ometiff.Create(path, img, opts)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer w.Abort()

	tiles, err := grid.Plan(src.Width(), src.Height(), opts.TileSize)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	for _, tile := range tiles {
		data, err := src.ReadRegion(tile.X, tile.Y, tile.Width, tile.Height)
		if err != nil {
			t.Fatalf("ReadRegion: %v", err)
		}
		if err := w.WriteTile(tile, data); err != nil {
			t.Fatalf("WriteTile %d: %v", tile.Index, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func verifyCanvas(t *testing.T, path string, src pixel.Source, tileSize int) ometiff.Info {
	t.Helper()
	r, err := ometiff.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	info := r.Info()
	if info.Width != src.Width() || info.Height != src.Height() {
		t.Fatalf("geometry = %dx%d, want %dx%d", info.Width, info.Height, src.Width(), src.Height())
	}
	if info.Format != src.Format() {
		t.Fatalf("format = %+v, want %+v", info.Format, src.Format())
	}
	if info.TileWidth != tileSize || info.TileHeight != tileSize {
		t.Fatalf("tile size = %dx%d, want %d", info.TileWidth, info.TileHeight, tileSize)
	}

	tiles, err := grid.Plan(src.Width(), src.Height(), tileSize)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	for _, tile := range tiles {
		got, err := r.ReadTile(tile.Col, tile.Row)
		if err != nil {
			t.Fatalf("ReadTile(%d,%d): %v", tile.Col, tile.Row, err)
		}
		want, err := src.ReadRegion(tile.X, tile.Y, tile.Width, tile.Height)
		if err != nil {
			t.Fatalf("ReadRegion: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("tile %d bytes differ after round trip", tile.Index)
		}
	}
	return info
}

func TestRoundTripReproducesEveryPixel(t *testing.T) {
	cases := []struct {
		name        string
		format      pixel.Format
		compression ometiff.Compression
		bigTIFF     ometiff.BigTIFFMode
	}{
		{"uint8-none", pixel.Format{Type: pixel.Uint8, Samples: 1, Interleaved: true}, ometiff.CompressionNone, ometiff.BigTIFFNever},
		{"uint16-be-deflate", pixel.Format{Type: pixel.Uint16, Samples: 1, BigEndian: true, Interleaved: true}, ometiff.CompressionDeflate, ometiff.BigTIFFAuto},
		{"int16-le-zstd", pixel.Format{Type: pixel.Int16, Samples: 1, Interleaved: true}, ometiff.CompressionZstd, ometiff.BigTIFFAuto},
		{"rgb8-deflate-bigtiff", pixel.Format{Type: pixel.Uint8, Samples: 3, Interleaved: true}, ometiff.CompressionDeflate, ometiff.BigTIFFAlways},
		{"float32-be-zstd-bigtiff", pixel.Format{Type: pixel.Float32, Samples: 1, BigEndian: true, Interleaved: true}, ometiff.CompressionZstd, ometiff.BigTIFFAlways},
		{"float64-none", pixel.Format{Type: pixel.Float64, Samples: 1, Interleaved: true}, ometiff.CompressionNone, ometiff.BigTIFFAuto},
		{"uint32-2ch-deflate", pixel.Format{Type: pixel.Uint32, Samples: 2, Interleaved: true}, ometiff.CompressionDeflate, ometiff.BigTIFFNever},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := patternCanvas(t, 53, 37, tc.format)
			path := filepath.Join(t.TempDir(), "image_1.ome.tif")
			opts := ometiff.Options{TileSize: 16, Compression: tc.compression, BigTIFF: tc.bigTIFF, Software: "imageassembly test"}
			writeCanvas(t, path, src, opts)
			info := verifyCanvas(t, path, src, 16)

			if info.Compression != tc.compression {
				t.Fatalf("compression = %v, want %v", info.Compression, tc.compression)
			}
			if info.BigTIFF != (tc.bigTIFF == ometiff.BigTIFFAlways) {
				t.Fatalf("bigtiff = %v for mode %s", info.BigTIFF, tc.bigTIFF)
			}
			if info.TileCount != 12 {
				t.Fatalf("tile count = %d, want 12", info.TileCount)
			}
			if info.OME == nil {
				t.Fatalf("expected OME-XML description, got %q", info.Description)
			}
			if info.OME.SizeX != 53 || info.OME.SizeY != 37 || info.OME.Type != tc.format.Type || info.OME.BigEndian != tc.format.BigEndian {
				t.Fatalf("unexpected OME pixels: %+v", info.OME)
			}
			if info.OME.SizeC != tc.format.Samples {
				t.Fatalf("OME SizeC = %d, want %d", info.OME.SizeC, tc.format.Samples)
			}
		})
	}
}

func TestSingleTileCanvasSmallerThanTile(t *testing.T) {
	f := pixel.Format{Type: pixel.Uint8, Samples: 1, Interleaved: true}
	src := patternCanvas(t, 5, 3, f)
	path := filepath.Join(t.TempDir(), "small.ome.tif")
	writeCanvas(t, path, src, ometiff.Options{TileSize: 32, Compression: ometiff.CompressionDeflate})
	info := verifyCanvas(t, path, src, 32)
	if info.TileCount != 1 {
		t.Fatalf("tile count = %d, want 1", info.TileCount)
	}
}

func TestStandardDecoderReadsContainer(t *testing.T) {
	f := pixel.Format{Type: pixel.Uint8, Samples: 1, Interleaved: true}
	src := patternCanvas(t, 40, 24, f)
	path := filepath.Join(t.TempDir(), "gray.ome.tif")
	writeCanvas(t, path, src, ometiff.Options{TileSize: 16, Compression: ometiff.CompressionDeflate, BigTIFF: ometiff.BigTIFFNever})

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()
	decoded, err := xtiff.Decode(file)
	if err != nil {
		t.Fatalf("x/image/tiff decode: %v", err)
	}
	gray, ok := decoded.(*image.Gray)
	if !ok {
		t.Fatalf("decoded %T, want *image.Gray", decoded)
	}
	want, _ := src.ReadRegion(0, 0, 40, 24)
	for y := 0; y < 24; y++ {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+40]
		if !bytes.Equal(row, want[y*40:(y+1)*40]) {
			t.Fatalf("row %d differs", y)
		}
	}
}

func TestWriteTileRejectsSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.ome.tif")
	img := ometiff.Image{Width: 20, Height: 20, Format: pixel.Format{Type: pixel.Uint16, Samples: 1, Interleaved: true}}
	w, err := ometiff.Create(path, img, ometiff.Options{TileSize: 16})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer w.Abort()

	tiles, _ := grid.Plan(20, 20, 16)
	err = w.WriteTile(tiles[0], make([]byte, 16*16))
	if !errors.Is(err, ometiff.ErrTileSizeMismatch) {
		t.Fatalf("expected ErrTileSizeMismatch, got %v", err)
	}
	if err := w.WriteTile(tiles[0], make([]byte, 16*16*2)); !errors.Is(err, ometiff.ErrWriterClosed) {
		t.Fatalf("expected failed writer to reject further tiles, got %v", err)
	}
	if err := w.Close(); err == nil {
		t.Fatal("expected Close on failed writer to error")
	}
	assertEmptyDir(t, dir)
}

func TestWriteTileRejectsOutOfOrder(t *testing.T) {
	dir := t.TempDir()
	img := ometiff.Image{Width: 32, Height: 16, Format: pixel.Format{Type: pixel.Uint8, Samples: 1, Interleaved: true}}
	w, err := ometiff.Create(filepath.Join(dir, "order.ome.tif"), img, ometiff.Options{TileSize: 16})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer w.Abort()

	tiles, _ := grid.Plan(32, 16, 16)
	if err := w.WriteTile(tiles[1], make([]byte, 256)); !errors.Is(err, ometiff.ErrTileOutOfOrder) {
		t.Fatalf("expected ErrTileOutOfOrder, got %v", err)
	}
}

func TestCloseRequiresCompleteGrid(t *testing.T) {
	dir := t.TempDir()
	img := ometiff.Image{Width: 32, Height: 16, Format: pixel.Format{Type: pixel.Uint8, Samples: 1, Interleaved: true}}
	w, err := ometiff.Create(filepath.Join(dir, "partial.ome.tif"), img, ometiff.Options{TileSize: 16})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	tiles, _ := grid.Plan(32, 16, 16)
	if err := w.WriteTile(tiles[0], make([]byte, 256)); err != nil {
		t.Fatalf("WriteTile: %v", err)
	}
	if err := w.Close(); !errors.Is(err, ometiff.ErrIncompleteGrid) {
		t.Fatalf("expected ErrIncompleteGrid, got %v", err)
	}
	assertEmptyDir(t, dir)
}

func TestAbortMidGridLeavesNoOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image_7.ome.tif")
	f := pixel.Format{Type: pixel.Uint8, Samples: 1, Interleaved: true}
	src := patternCanvas(t, 48, 48, f)
	w, err := ometiff.Create(path, ometiff.Image{Width: 48, Height: 48, Format: f}, ometiff.Options{TileSize: 16, Compression: ometiff.CompressionDeflate})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	tiles, _ := grid.Plan(48, 48, 16)
	if len(tiles) != 9 {
		t.Fatalf("expected 9 tiles, got %d", len(tiles))
	}
	for _, tile := range tiles[:4] {
		data, _ := src.ReadRegion(tile.X, tile.Y, tile.Width, tile.Height)
		if err := w.WriteTile(tile, data); err != nil {
			t.Fatalf("WriteTile: %v", err)
		}
	}
	if err := w.Abort(); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if err := w.Abort(); err != nil {
		t.Fatalf("second Abort: %v", err)
	}
	if err := w.WriteTile(tiles[4], make([]byte, 256)); !errors.Is(err, ometiff.ErrWriterClosed) {
		t.Fatalf("expected ErrWriterClosed after abort, got %v", err)
	}
	assertEmptyDir(t, dir)
}

func TestAbortAfterCloseKeepsFile(t *testing.T) {
	f := pixel.Format{Type: pixel.Uint8, Samples: 1, Interleaved: true}
	src := patternCanvas(t, 16, 16, f)
	path := filepath.Join(t.TempDir(), "keep.ome.tif")
	writeCanvas(t, path, src, ometiff.Options{TileSize: 16})
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected committed file: %v", err)
	}
}

func TestCreateValidatesInputs(t *testing.T) {
	dir := t.TempDir()
	gray := pixel.Format{Type: pixel.Uint8, Samples: 1, Interleaved: true}
	cases := []struct {
		name string
		img  ometiff.Image
		opts ometiff.Options
		want error
	}{
		{"unknown type", ometiff.Image{Width: 8, Height: 8, Format: pixel.Format{Samples: 1}}, ometiff.Options{TileSize: 16}, ometiff.ErrUnsupportedPixelType},
		{"planar rgb", ometiff.Image{Width: 8, Height: 8, Format: pixel.Format{Type: pixel.Uint8, Samples: 3}}, ometiff.Options{TileSize: 16}, ometiff.ErrUnsupportedLayout},
		{"odd tile", ometiff.Image{Width: 8, Height: 8, Format: gray}, ometiff.Options{TileSize: 10}, ometiff.ErrInvalidTileSize},
		{"lzw", ometiff.Image{Width: 8, Height: 8, Format: gray}, ometiff.Options{TileSize: 16, Compression: ometiff.CompressionLZW}, ometiff.ErrUnsupportedCompression},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ometiff.Create(filepath.Join(dir, "x.ome.tif"), tc.img, tc.opts)
			if !errors.Is(err, tc.want) {
				t.Fatalf("Create error = %v, want %v", err, tc.want)
			}
		})
	}
	assertEmptyDir(t, dir)
}

func TestCreateFailsForMissingDirectory(t *testing.T) {
	img := ometiff.Image{Width: 8, Height: 8, Format: pixel.Format{Type: pixel.Uint8, Samples: 1, Interleaved: true}}
	_, err := ometiff.Create(filepath.Join(t.TempDir(), "missing", "x.ome.tif"), img, ometiff.Options{TileSize: 16})
	if err == nil || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestParseCompression(t *testing.T) {
	for value, want := range map[string]ometiff.Compression{
		"none":    ometiff.CompressionNone,
		"Deflate": ometiff.CompressionDeflate,
		"zlib":    ometiff.CompressionDeflate,
		"zstd":    ometiff.CompressionZstd,
	} {
		got, err := ometiff.ParseCompression(value)
		if err != nil || got != want {
			t.Fatalf("ParseCompression(%q) = %v, %v", value, got, err)
		}
	}
	if _, err := ometiff.ParseCompression("jpeg"); !errors.Is(err, ometiff.ErrUnsupportedCompression) {
		t.Fatalf("expected ErrUnsupportedCompression, got %v", err)
	}
}

func TestOpenRejectsNonTIFF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte(strings.Repeat("x", 64)), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ometiff.Open(path); !errors.Is(err, ometiff.ErrNotTIFF) {
		t.Fatalf("expected ErrNotTIFF, got %v", err)
	}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected %s to be empty, found %v", dir, names)
	}
}
