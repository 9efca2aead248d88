package ometiff

import (
	"fmt"
	"strings"
)

const (
	tagNewSubfileType      = 254
	tagImageWidth          = 256
	tagImageLength         = 257
	tagBitsPerSample       = 258
	tagCompression         = 259
	tagPhotometric         = 262
	tagImageDescription    = 270
	tagStripOffsets        = 273
	tagSamplesPerPixel     = 277
	tagRowsPerStrip        = 278
	tagStripByteCounts     = 279
	tagPlanarConfiguration = 284
	tagSoftware            = 305
	tagTileWidth           = 322
	tagTileLength          = 323
	tagTileOffsets         = 324
	tagTileByteCounts      = 325
	tagExtraSamples        = 338
	tagSampleFormat        = 339
)

// Field types.
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndefined = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
	dtLong8     = 16
	dtSLong8    = 17
	dtIFD8      = 18
)

const (
	photometricMinIsBlack = 1
	photometricRGB        = 2

	planarChunky = 1

	sampleFormatUint  = 1
	sampleFormatInt   = 2
	sampleFormatFloat = 3
)

func typeSize(dt uint16) int {
	switch dt {
	case dtByte, dtASCII, dtSByte, dtUndefined:
		return 1
	case dtShort, dtSShort:
		return 2
	case dtLong, dtSLong, dtFloat:
		return 4
	case dtRational, dtSRational, dtDouble, dtLong8, dtSLong8, dtIFD8:
		return 8
	default:
		return 0
	}
}

// Compression identifies the codec applied to every tile payload. Values are
// the TIFF Compression tag codes.
type Compression uint16

const (
	CompressionNone       Compression = 1
	CompressionLZW        Compression = 5
	CompressionDeflate    Compression = 8
	CompressionDeflateOld Compression = 32946
	CompressionZstd       Compression = 50000
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZW:
		return "lzw"
	case CompressionDeflate, CompressionDeflateOld:
		return "deflate"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint16(c))
	}
}

// ParseCompression maps a configuration value to a writable compression mode.
func ParseCompression(value string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "none", "raw", "":
		return CompressionNone, nil
	case "deflate", "zlib", "zip":
		return CompressionDeflate, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedCompression, value)
	}
}

// BigTIFFMode selects between classic 32-bit offsets and BigTIFF.
type BigTIFFMode string

const (
	BigTIFFAuto   BigTIFFMode = "auto"
	BigTIFFAlways BigTIFFMode = "always"
	BigTIFFNever  BigTIFFMode = "never"
)

// ParseBigTIFFMode validates a configuration value.
func ParseBigTIFFMode(value string) (BigTIFFMode, error) {
	switch mode := BigTIFFMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case "":
		return BigTIFFAuto, nil
	case BigTIFFAuto, BigTIFFAlways, BigTIFFNever:
		return mode, nil
	default:
		return "", fmt.Errorf("bigtiff: unsupported value %q", value)
	}
}
