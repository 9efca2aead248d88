package testsupport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/tiff"
)

// Grid describes a synthetic MIST acquisition: Cols x Rows tiles whose
// neighbours share Overlap pixels.
type Grid struct {
	Cols       int
	Rows       int
	TileWidth  int
	TileHeight int
	Overlap    int
}

// Width is the stitched canvas width.
func (g Grid) Width() int { return g.Cols*(g.TileWidth-g.Overlap) + g.Overlap }

// Height is the stitched canvas height.
func (g Grid) Height() int { return g.Rows*(g.TileHeight-g.Overlap) + g.Overlap }

// CanvasValue is the uint16 sample every synthetic tile carries at canvas
// position (x, y). Overlapping tiles agree, so any draw order yields the
// same composite.
func CanvasValue(seed, x, y int) uint16 {
	return uint16((x*7 + y*13 + seed*101) % 65536)
}

// CanvasBytes renders the full w x h canvas as big-endian uint16 samples.
func CanvasBytes(seed, w, h int) []byte {
	out := make([]byte, 0, w*h*2)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out = binary.BigEndian.AppendUint16(out, CanvasValue(seed, x, y))
		}
	}
	return out
}

// WriteTimePoint writes the 16-bit grayscale PNG tiles of one time point into
// tilesDir and its global-positions vector into stitchingDir. origin shifts
// every position, which exercises offset normalization. It returns the
// vector path.
func WriteTimePoint(t testing.TB, tilesDir, stitchingDir, id string, seed int, g Grid, origin image.Point) string {
	t.Helper()

	var vector strings.Builder
	fmt.Fprintf(&vector, "# synthetic time point %s\n", id)
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			x0 := col * (g.TileWidth - g.Overlap)
			y0 := row * (g.TileHeight - g.Overlap)
			name := fmt.Sprintf("img_t%s_r%03d_c%03d.png", id, row+1, col+1)

			tile := image.NewGray16(image.Rect(0, 0, g.TileWidth, g.TileHeight))
			for y := 0; y < g.TileHeight; y++ {
				for x := 0; x < g.TileWidth; x++ {
					v := CanvasValue(seed, x0+x, y0+y)
					i := tile.PixOffset(x, y)
					tile.Pix[i], tile.Pix[i+1] = byte(v>>8), byte(v)
				}
			}
			WritePNG(t, filepath.Join(tilesDir, name), tile)

			fmt.Fprintf(&vector, "file: %s; corr: 0.95; position: (%d, %d); grid: (%d, %d);\n",
				name, origin.X+x0, origin.Y+y0, col, row)
		}
	}

	path := filepath.Join(stitchingDir, "img-global-positions-"+id+".txt")
	if err := os.WriteFile(path, []byte(vector.String()), 0o644); err != nil {
		t.Fatalf("write vector %s: %v", path, err)
	}
	return path
}

// WritePNG encodes img to path.
func WritePNG(t testing.TB, path string, img image.Image) {
	t.Helper()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteTIFF encodes img uncompressed to path, the way acquisition software
// that stores alpha writes RGBA tiles.
func WriteTIFF(t testing.TB, path string, img image.Image) {
	t.Helper()

	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// OpaqueNRGBA returns a w x h tile with alpha 255 whose red and green
// channels encode the pixel position.
func OpaqueNRGBA(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := img.PixOffset(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = byte(x*10), byte(y*10), 77, 255
		}
	}
	return img
}
