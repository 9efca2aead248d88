package ometiff

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/image/tiff/lzw"
)

// encoder compresses one tile payload at a time. The returned slice is only
// valid until the next call.
type encoder interface {
	encode(src []byte) ([]byte, error)
	close() error
}

func newEncoder(c Compression) (encoder, error) {
	switch c {
	case CompressionNone:
		return rawEncoder{}, nil
	case CompressionDeflate:
		return newDeflateEncoder()
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		return &zstdEncoder{enc: enc}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, c)
	}
}

type rawEncoder struct{}

func (rawEncoder) encode(src []byte) ([]byte, error) { return src, nil }
func (rawEncoder) close() error                      { return nil }

type deflateEncoder struct {
	buf bytes.Buffer
	zw  *zlib.Writer
}

func newDeflateEncoder() (*deflateEncoder, error) {
	e := &deflateEncoder{}
	zw, err := zlib.NewWriterLevel(&e.buf, zlib.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("deflate encoder: %w", err)
	}
	e.zw = zw
	return e, nil
}

func (e *deflateEncoder) encode(src []byte) ([]byte, error) {
	e.buf.Reset()
	e.zw.Reset(&e.buf)
	if _, err := e.zw.Write(src); err != nil {
		return nil, fmt.Errorf("deflate tile: %w", err)
	}
	if err := e.zw.Close(); err != nil {
		return nil, fmt.Errorf("deflate tile: %w", err)
	}
	return e.buf.Bytes(), nil
}

func (e *deflateEncoder) close() error { return nil }

type zstdEncoder struct {
	enc *zstd.Encoder
	dst []byte
}

func (e *zstdEncoder) encode(src []byte) ([]byte, error) {
	e.dst = e.enc.EncodeAll(src, e.dst[:0])
	return e.dst, nil
}

func (e *zstdEncoder) close() error { return e.enc.Close() }

// decode expands a stored tile payload. size is the expected decoded length.
func decode(c Compression, payload []byte, size int) ([]byte, error) {
	switch c {
	case CompressionNone:
		return payload, nil
	case CompressionDeflate, CompressionDeflateOld:
		zr, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("inflate tile: %w", err)
		}
		defer zr.Close()
		out := make([]byte, 0, size)
		buf := bytes.NewBuffer(out)
		if _, err := io.Copy(buf, zr); err != nil {
			return nil, fmt.Errorf("inflate tile: %w", err)
		}
		return buf.Bytes(), nil
	case CompressionLZW:
		lr := lzw.NewReader(bytes.NewReader(payload), lzw.MSB, 8)
		defer lr.Close()
		buf := bytes.NewBuffer(make([]byte, 0, size))
		if _, err := io.Copy(buf, lr); err != nil {
			return nil, fmt.Errorf("lzw tile: %w", err)
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(payload, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd tile: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, c)
	}
}
