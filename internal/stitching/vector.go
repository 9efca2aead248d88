package stitching

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrMalformedVector is returned for stitching vectors that cannot be parsed.
var ErrMalformedVector = errors.New("malformed stitching vector")

// Placement is one source tile of a stitching vector.
type Placement struct {
	File        string
	X           int
	Y           int
	Col         int
	Row         int
	Correlation float64
}

// ParseVectorFile reads a MIST global-positions file.
func ParseVectorFile(path string) ([]Placement, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	placements, err := ParseVector(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return placements, nil
}

// ParseVector reads lines of the form
//
//	file: img_r001_c001.tif; corr: 0.91; position: (0, 0); grid: (0, 0);
//
// Blank lines and lines starting with # are ignored. file and position are
// required; corr and grid are optional.
func ParseVector(r io.Reader) ([]Placement, error) {
	var placements []Placement
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		p, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrMalformedVector, lineNo, err)
		}
		placements = append(placements, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read stitching vector: %w", err)
	}
	if len(placements) == 0 {
		return nil, fmt.Errorf("%w: no tiles", ErrMalformedVector)
	}
	return placements, nil
}

func parseLine(line string) (Placement, error) {
	var p Placement
	var haveFile, havePosition bool
	for _, part := range strings.Split(line, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			return Placement{}, fmt.Errorf("field %q has no value", part)
		}
		key, value = strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value)
		switch key {
		case "file":
			if value == "" {
				return Placement{}, errors.New("empty file name")
			}
			p.File = value
			haveFile = true
		case "corr":
			corr, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return Placement{}, fmt.Errorf("corr: %v", err)
			}
			p.Correlation = corr
		case "position":
			x, y, err := parsePair(value)
			if err != nil {
				return Placement{}, fmt.Errorf("position: %v", err)
			}
			p.X, p.Y = x, y
			havePosition = true
		case "grid":
			col, row, err := parsePair(value)
			if err != nil {
				return Placement{}, fmt.Errorf("grid: %v", err)
			}
			p.Col, p.Row = col, row
		}
	}
	if !haveFile {
		return Placement{}, errors.New("missing file")
	}
	if !havePosition {
		return Placement{}, errors.New("missing position")
	}
	return p, nil
}

func parsePair(value string) (int, int, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "(") || !strings.HasSuffix(value, ")") {
		return 0, 0, fmt.Errorf("%q is not a (a, b) pair", value)
	}
	first, second, ok := strings.Cut(value[1:len(value)-1], ",")
	if !ok {
		return 0, 0, fmt.Errorf("%q is not a (a, b) pair", value)
	}
	a, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return 0, 0, err
	}
	b, err := strconv.Atoi(strings.TrimSpace(second))
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}
