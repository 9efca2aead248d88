package ometiff

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"imageassembly/internal/grid"
	"imageassembly/internal/pixel"
)

const (
	classicHeaderSize = 8
	bigHeaderSize     = 16
	writeBufferSize   = 1 << 20
)

// Image describes the canvas a Writer stores.
type Image struct {
	Name   string
	Width  int
	Height int
	Format pixel.Format
	// SignificantBits records the acquisition bit depth when it is lower
	// than the sample width. Zero omits it.
	SignificantBits int
}

// Options configures container layout.
type Options struct {
	TileSize    int
	Compression Compression
	BigTIFF     BigTIFFMode
	Software    string
}

type writerState int

const (
	stateOpen writerState = iota
	stateClosed
	stateFailed
)

// Writer streams tiles of one image into a tiled OME-TIFF. Tiles must arrive
// in grid.Plan order. Output goes to a hidden partial file that is renamed
// onto the target path only by a successful Close; Abort removes it.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	path    string
	partial string
	file    *os.File
	buf     *bufio.Writer

	img   Image
	opts  Options
	order byteOrder
	big   bool
	bpp   int

	cols int
	rows int
	next int

	offset      uint64
	tileOffsets []uint64
	tileCounts  []uint64

	scratch []byte
	enc     encoder

	state writerState
	err   error
}

// Create validates the image and options, opens the partial output file and
// reserves the header.
func Create(path string, img Image, opts Options) (*Writer, error) {
	if img.Width <= 0 || img.Height <= 0 {
		return nil, fmt.Errorf("%w: canvas %dx%d", grid.ErrInvalidGeometry, img.Width, img.Height)
	}
	if img.Format.Type.BytesPerSample() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPixelType, img.Format.Type)
	}
	if img.Format.Samples < 1 {
		return nil, fmt.Errorf("%w: %d samples per pixel", ErrUnsupportedPixelType, img.Format.Samples)
	}
	if img.Format.Samples > 1 && !img.Format.Interleaved {
		return nil, fmt.Errorf("%w: tile payloads must be interleaved", ErrUnsupportedLayout)
	}
	if opts.TileSize <= 0 || opts.TileSize%16 != 0 || opts.TileSize > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d (must be a positive multiple of 16)", ErrInvalidTileSize, opts.TileSize)
	}
	if opts.Compression == 0 {
		opts.Compression = CompressionNone
	}
	mode := opts.BigTIFF
	if mode == "" {
		mode = BigTIFFAuto
	}

	cols, rows, err := grid.Count(img.Width, img.Height, opts.TileSize)
	if err != nil {
		return nil, err
	}

	enc, err := newEncoder(opts.Compression)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		path:        path,
		img:         img,
		opts:        opts,
		bpp:         img.Format.BytesPerPixel(),
		cols:        cols,
		rows:        rows,
		tileOffsets: make([]uint64, 0, cols*rows),
		tileCounts:  make([]uint64, 0, cols*rows),
		enc:         enc,
	}
	w.order = binary.LittleEndian
	if img.Format.BigEndian {
		w.order = binary.BigEndian
	}
	w.big = chooseBigTIFF(mode, uint64(cols*opts.TileSize)*uint64(rows*opts.TileSize)*uint64(w.bpp))

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	file, err := os.CreateTemp(dir, "."+base+".*.partial")
	if err != nil {
		_ = enc.close()
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	w.file = file
	w.partial = file.Name()
	w.buf = bufio.NewWriterSize(file, writeBufferSize)

	if err := w.writeHeader(); err != nil {
		_ = w.Abort()
		return nil, err
	}
	return w, nil
}

func chooseBigTIFF(mode BigTIFFMode, rawBytes uint64) bool {
	switch mode {
	case BigTIFFAlways:
		return true
	case BigTIFFNever:
		return false
	default:
		// Leave headroom for codec overhead and the directory itself.
		worst := rawBytes + rawBytes/64 + 1<<20
		return worst > math.MaxUint32
	}
}

func (w *Writer) writeHeader() error {
	var header []byte
	if w.img.Format.BigEndian {
		header = append(header, 'M', 'M')
	} else {
		header = append(header, 'I', 'I')
	}
	if w.big {
		header = w.order.AppendUint16(header, 43)
		header = w.order.AppendUint16(header, 8)
		header = w.order.AppendUint16(header, 0)
		header = w.order.AppendUint64(header, 0)
	} else {
		header = w.order.AppendUint16(header, 42)
		header = w.order.AppendUint32(header, 0)
	}
	if _, err := w.buf.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	w.offset = uint64(len(header))
	return nil
}

// BigTIFF reports whether the container uses 64-bit offsets.
func (w *Writer) BigTIFF() bool { return w.big }

// TilesWritten returns the number of accepted tiles.
func (w *Writer) TilesWritten() int { return w.next }

// BytesWritten returns the number of bytes emitted so far.
func (w *Writer) BytesWritten() uint64 { return w.offset }

// WriteTile appends the next tile. data holds t.Width*t.Height pixels in the
// image format, row by row. Edge tiles are zero padded to the full tile size
// before encoding.
func (w *Writer) WriteTile(t grid.Tile, data []byte) error {
	if err := w.checkOpen(); err != nil {
		return err
	}
	if w.next >= w.cols*w.rows {
		return w.fail(fmt.Errorf("%w: grid already complete with %d tiles", ErrTileOutOfOrder, w.next))
	}

	size := w.opts.TileSize
	col, row := w.next%w.cols, w.next/w.cols
	x, y := col*size, row*size
	if t.Index != w.next || t.X != x || t.Y != y {
		return w.fail(fmt.Errorf("%w: got tile %d at (%d,%d), want tile %d at (%d,%d)", ErrTileOutOfOrder, t.Index, t.X, t.Y, w.next, x, y))
	}
	ew, eh := min(size, w.img.Width-x), min(size, w.img.Height-y)
	if t.Width != ew || t.Height != eh {
		return w.fail(fmt.Errorf("%w: tile %d is %dx%d, want %dx%d", ErrTileSizeMismatch, t.Index, t.Width, t.Height, ew, eh))
	}
	if want := ew * eh * w.bpp; len(data) != want {
		return w.fail(fmt.Errorf("%w: tile %d has %d bytes, want %d", ErrTileSizeMismatch, t.Index, len(data), want))
	}

	payload, err := w.enc.encode(w.pad(data, ew, eh))
	if err != nil {
		return w.fail(err)
	}
	n := uint64(len(payload))
	if !w.big && w.offset+n > math.MaxUint32 {
		return w.fail(fmt.Errorf("%w: tile %d ends past 4 GiB", ErrOffsetOverflow, t.Index))
	}
	if _, err := w.buf.Write(payload); err != nil {
		return w.fail(fmt.Errorf("write tile %d: %w", t.Index, err))
	}
	w.tileOffsets = append(w.tileOffsets, w.offset)
	w.tileCounts = append(w.tileCounts, n)
	w.offset += n
	w.next++
	return nil
}

func (w *Writer) pad(data []byte, ew, eh int) []byte {
	size := w.opts.TileSize
	if ew == size && eh == size {
		return data
	}
	full := size * size * w.bpp
	if cap(w.scratch) < full {
		w.scratch = make([]byte, full)
	}
	w.scratch = w.scratch[:full]
	clear(w.scratch)
	rowIn, rowOut := ew*w.bpp, size*w.bpp
	for r := 0; r < eh; r++ {
		copy(w.scratch[r*rowOut:r*rowOut+rowIn], data[r*rowIn:(r+1)*rowIn])
	}
	return w.scratch
}

// Close writes the directory, finalizes the header and commits the file to
// its target path. Every tile of the grid must have been written. On error
// the partial file is removed.
func (w *Writer) Close() error {
	if err := w.checkOpen(); err != nil {
		if w.state == stateFailed {
			_ = w.Abort()
		}
		return err
	}
	if total := w.cols * w.rows; w.next != total {
		err := w.fail(fmt.Errorf("%w: %d of %d tiles written", ErrIncompleteGrid, w.next, total))
		_ = w.Abort()
		return err
	}
	if err := w.finalize(); err != nil {
		_ = w.fail(err)
		_ = w.Abort()
		return err
	}
	w.state = stateClosed
	return nil
}

func (w *Writer) finalize() error {
	description, err := buildOMEXML(w.img, w.opts.Software)
	if err != nil {
		return err
	}

	ifdOffset := w.offset
	if ifdOffset%2 == 1 {
		if err := w.buf.WriteByte(0); err != nil {
			return fmt.Errorf("write directory: %w", err)
		}
		ifdOffset++
	}

	b := newIFDBuilder(w.order, w.big)
	w.describe(b, description)
	dir := b.encode(ifdOffset)
	if !w.big && ifdOffset+uint64(len(dir)) > math.MaxUint32 {
		return fmt.Errorf("%w: directory ends past 4 GiB", ErrOffsetOverflow)
	}
	if _, err := w.buf.Write(dir); err != nil {
		return fmt.Errorf("write directory: %w", err)
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", w.partial, err)
	}

	var pointer []byte
	var at int64
	if w.big {
		pointer = w.order.AppendUint64(nil, ifdOffset)
		at = 8
	} else {
		pointer = w.order.AppendUint32(nil, uint32(ifdOffset))
		at = 4
	}
	if _, err := w.file.WriteAt(pointer, at); err != nil {
		return fmt.Errorf("patch header: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", w.partial, err)
	}
	if err := w.file.Close(); err != nil {
		w.file = nil
		return fmt.Errorf("close %s: %w", w.partial, err)
	}
	w.file = nil
	err = w.enc.close()
	w.enc = nil
	if err != nil {
		return fmt.Errorf("close encoder: %w", err)
	}
	if err := os.Rename(w.partial, w.path); err != nil {
		return fmt.Errorf("commit %s: %w", w.path, err)
	}
	w.partial = ""
	w.offset = ifdOffset + uint64(len(dir))
	return nil
}

func (w *Writer) describe(b *ifdBuilder, description string) {
	f := w.img.Format
	samples := uint16(f.Samples)
	bits := uint16(f.Type.BytesPerSample() * 8)

	b.longs(tagNewSubfileType, 0)
	b.longs(tagImageWidth, uint32(w.img.Width))
	b.longs(tagImageLength, uint32(w.img.Height))
	b.shorts(tagBitsPerSample, repeat(bits, f.Samples)...)
	b.shorts(tagCompression, uint16(w.opts.Compression))

	photometric, extra := uint16(photometricMinIsBlack), f.Samples-1
	if f.Samples >= 3 {
		photometric, extra = photometricRGB, f.Samples-3
	}
	b.shorts(tagPhotometric, photometric)
	b.ascii(tagImageDescription, description)
	b.shorts(tagSamplesPerPixel, samples)
	b.shorts(tagPlanarConfiguration, planarChunky)
	if w.opts.Software != "" {
		b.ascii(tagSoftware, w.opts.Software)
	}
	b.longs(tagTileWidth, uint32(w.opts.TileSize))
	b.longs(tagTileLength, uint32(w.opts.TileSize))
	b.offsets(tagTileOffsets, w.tileOffsets)
	b.offsets(tagTileByteCounts, w.tileCounts)
	if extra > 0 {
		b.shorts(tagExtraSamples, repeat(0, extra)...)
	}
	b.shorts(tagSampleFormat, repeat(sampleFormat(f.Type), f.Samples)...)
}

func sampleFormat(t pixel.Type) uint16 {
	switch t.Kind() {
	case pixel.KindSigned:
		return sampleFormatInt
	case pixel.KindFloat:
		return sampleFormatFloat
	default:
		return sampleFormatUint
	}
}

func repeat(v uint16, n int) []uint16 {
	out := make([]uint16, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Abort discards the partial file. It is safe to call more than once and is
// a no-op after a successful Close, so callers can defer it right after
// Create.
func (w *Writer) Abort() error {
	if w.state == stateClosed {
		return nil
	}
	if w.state == stateOpen {
		w.state = stateFailed
		w.err = ErrWriterClosed
	}
	var errs []error
	if w.file != nil {
		if err := w.file.Close(); err != nil {
			errs = append(errs, err)
		}
		w.file = nil
	}
	if w.partial != "" {
		if err := os.Remove(w.partial); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
		w.partial = ""
	}
	if w.enc != nil {
		if err := w.enc.close(); err != nil {
			errs = append(errs, err)
		}
		w.enc = nil
	}
	return errors.Join(errs...)
}

func (w *Writer) checkOpen() error {
	switch w.state {
	case stateOpen:
		return nil
	case stateFailed:
		return fmt.Errorf("%w: %w", ErrWriterClosed, w.err)
	default:
		return ErrWriterClosed
	}
}

func (w *Writer) fail(err error) error {
	w.state = stateFailed
	w.err = err
	return err
}
