package ometiff

import "errors"

var (
	ErrUnsupportedPixelType   = errors.New("unsupported pixel type")
	ErrUnsupportedLayout      = errors.New("unsupported pixel layout")
	ErrUnsupportedCompression = errors.New("unsupported compression")
	ErrInvalidTileSize        = errors.New("invalid tile size")
	ErrTileSizeMismatch       = errors.New("tile size mismatch")
	ErrTileOutOfOrder         = errors.New("tile out of order")
	ErrIncompleteGrid         = errors.New("incomplete tile grid")
	ErrOffsetOverflow         = errors.New("classic tiff offset overflow")
	ErrWriterClosed           = errors.New("writer closed")
	ErrNotTIFF                = errors.New("not a tiff file")
	ErrMalformed              = errors.New("malformed tiff")
	ErrNotTiled               = errors.New("tiff is not tiled")
)
