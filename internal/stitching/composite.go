package stitching

import (
	"fmt"
	"image"
	_ "image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/golang/groupcache/lru"
	_ "golang.org/x/image/tiff"

	"imageassembly/internal/pixel"
)

// DefaultCacheTiles bounds how many decoded source tiles a Composite keeps.
const DefaultCacheTiles = 64

type placedTile struct {
	path   string
	x      int
	y      int
	width  int
	height int
}

// Composite is the logical canvas described by a stitching vector. Source
// tiles are decoded lazily on first overlap with a requested region and kept
// in a bounded LRU cache. Where tiles overlap, later vector entries are drawn
// over earlier ones.
//
// A Composite is not safe for concurrent use.
type Composite struct {
	tiles  []placedTile
	width  int
	height int
	format pixel.Format
	cache  *lru.Cache
}

// OpenComposite parses vectorPath and probes every referenced tile under
// tilesDir for its dimensions. All tiles must share one pixel format.
// Positions are shifted so the top-left-most tile sits at the origin.
func OpenComposite(vectorPath, tilesDir string, cacheTiles int) (*Composite, error) {
	placements, err := ParseVectorFile(vectorPath)
	if err != nil {
		return nil, err
	}
	if cacheTiles <= 0 {
		cacheTiles = DefaultCacheTiles
	}

	minX, minY := math.MaxInt, math.MaxInt
	for _, p := range placements {
		minX, minY = min(minX, p.X), min(minY, p.Y)
	}

	c := &Composite{tiles: make([]placedTile, 0, len(placements)), cache: lru.New(cacheTiles)}
	for i, p := range placements {
		path := filepath.Join(tilesDir, p.File)
		cfg, err := decodeConfig(path)
		if err != nil {
			return nil, fmt.Errorf("probe tile %s: %w", p.File, err)
		}
		format, err := pixel.FormatForModel(cfg.ColorModel)
		if err != nil {
			return nil, fmt.Errorf("probe tile %s: %w", p.File, err)
		}
		if i == 0 {
			c.format = format
		} else if format != c.format {
			return nil, fmt.Errorf("tile %s has %s x%d samples, expected %s x%d", p.File, format.Type, format.Samples, c.format.Type, c.format.Samples)
		}
		t := placedTile{path: path, x: p.X - minX, y: p.Y - minY, width: cfg.Width, height: cfg.Height}
		c.width, c.height = max(c.width, t.x+t.width), max(c.height, t.y+t.height)
		c.tiles = append(c.tiles, t)
	}
	if c.width <= 0 || c.height <= 0 {
		return nil, fmt.Errorf("%w: empty canvas", ErrMalformedVector)
	}
	return c, nil
}

func decodeConfig(path string) (image.Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer file.Close()
	cfg, _, err := image.DecodeConfig(file)
	return cfg, err
}

func (c *Composite) Width() int { return c.width }

func (c *Composite) Height() int { return c.height }

func (c *Composite) Format() pixel.Format { return c.format }

// Representative returns the path of the first source tile.
func (c *Composite) Representative() string {
	if len(c.tiles) == 0 {
		return ""
	}
	return c.tiles[0].path
}

// ReadRegion renders the region from every overlapping source tile. Pixels
// no tile covers are zero.
func (c *Composite) ReadRegion(x, y, w, h int) ([]byte, error) {
	if err := pixel.CheckRegion(c.width, c.height, x, y, w, h); err != nil {
		return nil, err
	}
	bpp := c.format.BytesPerPixel()
	out := make([]byte, w*h*bpp)
	for i := range c.tiles {
		t := &c.tiles[i]
		x0, y0 := max(x, t.x), max(y, t.y)
		x1, y1 := min(x+w, t.x+t.width), min(y+h, t.y+t.height)
		if x0 >= x1 || y0 >= y1 {
			continue
		}
		data, err := c.decoded(i)
		if err != nil {
			return nil, err
		}
		n := (x1 - x0) * bpp
		for row := y0; row < y1; row++ {
			src := ((row-t.y)*t.width + (x0 - t.x)) * bpp
			dst := ((row-y)*w + (x0 - x)) * bpp
			copy(out[dst:dst+n], data[src:src+n])
		}
	}
	return out, nil
}

func (c *Composite) decoded(i int) ([]byte, error) {
	if v, ok := c.cache.Get(i); ok {
		return v.([]byte), nil
	}
	t := c.tiles[i]
	file, err := os.Open(t.path)
	if err != nil {
		return nil, fmt.Errorf("open tile: %w", err)
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode tile %s: %w", t.path, err)
	}
	data, format, err := pixel.FromImage(img)
	if err != nil {
		return nil, fmt.Errorf("decode tile %s: %w", t.path, err)
	}
	if format != c.format {
		return nil, fmt.Errorf("decode tile %s: layout changed between probe and decode", t.path)
	}
	if b := img.Bounds(); b.Dx() != t.width || b.Dy() != t.height {
		return nil, fmt.Errorf("decode tile %s: %dx%d, probed %dx%d", t.path, b.Dx(), b.Dy(), t.width, t.height)
	}
	c.cache.Add(i, data)
	return data, nil
}

// Close drops cached tiles. The composite holds no open files between calls.
func (c *Composite) Close() error {
	c.cache.Clear()
	return nil
}
