package pixel

import (
	"errors"
	"fmt"
	"strings"
)

// ErrRegionOutOfBounds is returned when a requested region falls outside the
// source canvas or has a non-positive size.
var ErrRegionOutOfBounds = errors.New("region out of bounds")

// Type enumerates the sample types a source may report. Names follow the OME
// pixel type vocabulary.
type Type int

const (
	Unknown Type = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
)

// SampleKind is the TIFF SampleFormat grouping of a type.
type SampleKind int

const (
	KindUnsigned SampleKind = iota + 1
	KindSigned
	KindFloat
)

// BytesPerSample returns the storage width of one sample, or 0 for Unknown.
func (t Type) BytesPerSample() int {
	switch t {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

// Kind reports whether the type is unsigned, signed or floating point.
func (t Type) Kind() SampleKind {
	switch t {
	case Int8, Int16, Int32:
		return KindSigned
	case Float32, Float64:
		return KindFloat
	default:
		return KindUnsigned
	}
}

// String returns the OME name of the type.
func (t Type) String() string {
	switch t {
	case Int8:
		return "int8"
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	case Float32:
		return "float"
	case Float64:
		return "double"
	default:
		return "unknown"
	}
}

// TypeFor maps a sample kind and bit depth to a Type. It returns Unknown when
// the pair has no representation.
func TypeFor(kind SampleKind, bits int) Type {
	switch kind {
	case KindUnsigned:
		switch bits {
		case 8:
			return Uint8
		case 16:
			return Uint16
		case 32:
			return Uint32
		}
	case KindSigned:
		switch bits {
		case 8:
			return Int8
		case 16:
			return Int16
		case 32:
			return Int32
		}
	case KindFloat:
		switch bits {
		case 32:
			return Float32
		case 64:
			return Float64
		}
	}
	return Unknown
}

// ParseType accepts OME names ("uint16", "float") and the Go-ish aliases
// "float32" and "float64".
func ParseType(value string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "int8":
		return Int8, nil
	case "uint8":
		return Uint8, nil
	case "int16":
		return Int16, nil
	case "uint16":
		return Uint16, nil
	case "int32":
		return Int32, nil
	case "uint32":
		return Uint32, nil
	case "float", "float32":
		return Float32, nil
	case "double", "float64":
		return Float64, nil
	default:
		return Unknown, fmt.Errorf("pixel type: unsupported value %q", value)
	}
}

// Format describes how pixel bytes are laid out.
type Format struct {
	Type    Type
	Samples int
	// BigEndian reports multi-byte sample order.
	BigEndian bool
	// Interleaved means samples of one pixel are adjacent (chunky). When false,
	// a region is laid out plane by plane.
	Interleaved bool
}

// BytesPerPixel returns the byte width of one pixel across all samples.
func (f Format) BytesPerPixel() int {
	samples := f.Samples
	if samples < 1 {
		samples = 1
	}
	return f.Type.BytesPerSample() * samples
}

// Validate checks that the format can describe real bytes.
func (f Format) Validate() error {
	if f.Type.BytesPerSample() == 0 {
		return fmt.Errorf("pixel format: unknown sample type")
	}
	if f.Samples < 1 {
		return fmt.Errorf("pixel format: samples per pixel must be positive, got %d", f.Samples)
	}
	return nil
}

// RegionSize returns the byte length of a w x h region in format f.
func (f Format) RegionSize(w, h int) int {
	return w * h * f.BytesPerPixel()
}

// Source is a read-only pixel canvas.
type Source interface {
	Width() int
	Height() int
	Format() Format
	// ReadRegion returns the bytes of the w x h region at (x, y) laid out
	// according to Format.
	ReadRegion(x, y, w, h int) ([]byte, error)
	Close() error
}

// CheckRegion validates a region request against a canvas.
func CheckRegion(width, height, x, y, w, h int) error {
	if w <= 0 || h <= 0 || x < 0 || y < 0 || x+w > width || y+h > height {
		return fmt.Errorf("%w: (%d,%d %dx%d) on %dx%d canvas", ErrRegionOutOfBounds, x, y, w, h, width, height)
	}
	return nil
}
