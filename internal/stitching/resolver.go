package stitching

import "imageassembly/internal/pixel"

// Resolver opens composites for discovered time points.
type Resolver struct {
	TilesDir   string
	CacheTiles int
}

// Resolve returns the composite for tp and the path of its representative
// tile.
func (r Resolver) Resolve(tp TimePoint) (pixel.Source, string, error) {
	c, err := OpenComposite(tp.VectorPath, r.TilesDir, r.CacheTiles)
	if err != nil {
		return nil, "", err
	}
	return c, c.Representative(), nil
}
