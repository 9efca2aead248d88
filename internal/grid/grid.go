// Package grid partitions a canvas into a row-major sequence of fixed-size
// tiles, clipping the last column and row to the canvas edge.
package grid

import (
	"errors"
	"fmt"
)

// ErrInvalidGeometry is returned for non-positive canvas or tile sizes.
var ErrInvalidGeometry = errors.New("invalid grid geometry")

// Tile is one cell of the grid. Width and Height are the effective size,
// which is smaller than the tile size only on the right and bottom edges.
type Tile struct {
	Index  int
	Col    int
	Row    int
	X      int
	Y      int
	Width  int
	Height int
}

// Count returns the number of tile columns and rows covering the canvas.
func Count(width, height, tileSize int) (cols, rows int, err error) {
	if width <= 0 || height <= 0 || tileSize <= 0 {
		return 0, 0, fmt.Errorf("%w: %dx%d canvas with tile size %d", ErrInvalidGeometry, width, height, tileSize)
	}
	return ceilDiv(width, tileSize), ceilDiv(height, tileSize), nil
}

// Plan returns the tiles covering [0,width) x [0,height) in row-major order:
// every tile of row 0 left to right, then row 1, and so on.
func Plan(width, height, tileSize int) ([]Tile, error) {
	cols, rows, err := Count(width, height, tileSize)
	if err != nil {
		return nil, err
	}
	tiles := make([]Tile, 0, cols*rows)
	for row := 0; row < rows; row++ {
		y := row * tileSize
		h := effective(y, tileSize, height)
		for col := 0; col < cols; col++ {
			x := col * tileSize
			tiles = append(tiles, Tile{
				Index:  len(tiles),
				Col:    col,
				Row:    row,
				X:      x,
				Y:      y,
				Width:  effective(x, tileSize, width),
				Height: h,
			})
		}
	}
	return tiles, nil
}

func effective(origin, tileSize, limit int) int {
	if origin+tileSize > limit {
		return limit - origin
	}
	return tileSize
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}
