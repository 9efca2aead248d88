package stitching

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Default MIST naming for per-time-point global positions files.
const (
	DefaultVectorPrefix = "img-global-positions-"
	DefaultVectorSuffix = ".txt"
)

// TimePoint is one discovered stitching vector.
type TimePoint struct {
	ID         string
	VectorPath string
}

// Discover lists dir for files named prefix<ID>suffix. Numeric identifiers
// sort numerically ahead of non-numeric ones, which sort lexically.
func Discover(dir, prefix, suffix string) ([]TimePoint, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list stitching vectors in %s: %w", dir, err)
	}
	var points []TimePoint
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		if len(name) <= len(prefix)+len(suffix) {
			continue
		}
		id := name[len(prefix) : len(name)-len(suffix)]
		points = append(points, TimePoint{ID: id, VectorPath: filepath.Join(dir, name)})
	}
	slices.SortFunc(points, func(a, b TimePoint) int { return compareIDs(a.ID, b.ID) })
	return points, nil
}

func compareIDs(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		if c := cmp.Compare(na, nb); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	case errA == nil:
		return -1
	case errB == nil:
		return 1
	default:
		return cmp.Compare(a, b)
	}
}
