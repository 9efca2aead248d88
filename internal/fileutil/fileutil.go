package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// RemoveMatching deletes the regular files in dir whose names satisfy match
// and returns the removed paths. Subdirectories are not descended into.
func RemoveMatching(dir string, match func(name string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var removed []string
	var errs []error
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !match(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, path)
	}
	return removed, errors.Join(errs...)
}

// IsPartial reports whether name looks like an in-progress output written
// for a target with the given extension: a dot-prefixed file ending in
// ".partial".
func IsPartial(name, ext string) bool {
	if !strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".partial") {
		return false
	}
	return ext == "" || strings.Contains(name, ext+".")
}

// FileSize returns the size of path in bytes.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", path)
	}
	return info.Size(), nil
}
