package ometiff

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"imageassembly/internal/pixel"
)

// maxFieldBytes bounds a single field's payload when parsing untrusted files.
const maxFieldBytes = 1 << 28

// Info summarizes the first image directory of a TIFF file.
type Info struct {
	Width           int
	Height          int
	Format          pixel.Format
	BitsPerSample   int
	TileWidth       int
	TileHeight      int
	Compression     Compression
	BigTIFF         bool
	Photometric     int
	ExtraSamples    int
	Description     string
	OME             *OMEPixels
	TileCount       int
	CompressedBytes uint64
}

// Tiled reports whether the image is organized in tiles rather than strips.
func (i Info) Tiled() bool { return i.TileWidth > 0 && i.TileHeight > 0 }

// Grid returns the tile columns and rows of a tiled image.
func (i Info) Grid() (cols, rows int) {
	if !i.Tiled() {
		return 0, 0
	}
	return (i.Width + i.TileWidth - 1) / i.TileWidth, (i.Height + i.TileHeight - 1) / i.TileHeight
}

type field struct {
	typ   uint16
	count uint64
	data  []byte
}

// Reader gives random access to the tiles of a TIFF written with chunky
// planar configuration.
type Reader struct {
	file   *os.File
	order  binary.ByteOrder
	info   Info
	fields map[uint16]field

	offsets []uint64
	counts  []uint64
}

// Open parses the header and first directory of path.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &Reader{file: file}
	if err := r.parse(); err != nil {
		file.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Probe returns the first directory's Info and releases the file before
// returning.
func Probe(path string) (Info, error) {
	r, err := Open(path)
	if err != nil {
		return Info{}, err
	}
	defer r.Close()
	return r.Info(), nil
}

// Close releases the file handle.
func (r *Reader) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Info returns the parsed image summary.
func (r *Reader) Info() Info { return r.info }

func (r *Reader) parse() error {
	head := make([]byte, bigHeaderSize)
	n, err := io.ReadFull(r.file, head)
	if err != nil && n < classicHeaderSize {
		return fmt.Errorf("%w: short header", ErrNotTIFF)
	}
	switch string(head[:2]) {
	case "II":
		r.order = binary.LittleEndian
	case "MM":
		r.order = binary.BigEndian
	default:
		return fmt.Errorf("%w: bad byte order mark", ErrNotTIFF)
	}

	var ifdOffset uint64
	switch magic := r.order.Uint16(head[2:4]); magic {
	case 42:
		ifdOffset = uint64(r.order.Uint32(head[4:8]))
	case 43:
		if n < bigHeaderSize || r.order.Uint16(head[4:6]) != 8 {
			return fmt.Errorf("%w: bad bigtiff header", ErrMalformed)
		}
		r.info.BigTIFF = true
		ifdOffset = r.order.Uint64(head[8:16])
	default:
		return fmt.Errorf("%w: magic %d", ErrNotTIFF, magic)
	}
	if ifdOffset == 0 {
		return fmt.Errorf("%w: no image directory", ErrMalformed)
	}

	if err := r.readDirectory(ifdOffset); err != nil {
		return err
	}
	return r.decodeInfo()
}

func (r *Reader) readDirectory(offset uint64) error {
	countSize, entrySize, valueSize := 2, 12, 4
	if r.info.BigTIFF {
		countSize, entrySize, valueSize = 8, 20, 8
	}

	head := make([]byte, countSize)
	if _, err := r.file.ReadAt(head, int64(offset)); err != nil {
		return fmt.Errorf("%w: read directory: %v", ErrMalformed, err)
	}
	var n uint64
	if r.info.BigTIFF {
		n = r.order.Uint64(head)
	} else {
		n = uint64(r.order.Uint16(head))
	}
	if n == 0 || n > 4096 {
		return fmt.Errorf("%w: directory with %d entries", ErrMalformed, n)
	}

	raw := make([]byte, int(n)*entrySize)
	if _, err := r.file.ReadAt(raw, int64(offset)+int64(countSize)); err != nil {
		return fmt.Errorf("%w: read directory entries: %v", ErrMalformed, err)
	}

	r.fields = make(map[uint16]field, n)
	for i := 0; i < int(n); i++ {
		e := raw[i*entrySize : (i+1)*entrySize]
		tag := r.order.Uint16(e[0:2])
		typ := r.order.Uint16(e[2:4])
		var count uint64
		var value []byte
		if r.info.BigTIFF {
			count = r.order.Uint64(e[4:12])
			value = e[12:20]
		} else {
			count = uint64(r.order.Uint32(e[4:8]))
			value = e[8:12]
		}
		size := typeSize(typ)
		if size == 0 {
			continue
		}
		total := count * uint64(size)
		if total > maxFieldBytes {
			return fmt.Errorf("%w: tag %d holds %d bytes", ErrMalformed, tag, total)
		}
		data := make([]byte, total)
		if total <= uint64(valueSize) {
			copy(data, value)
		} else {
			var at uint64
			if r.info.BigTIFF {
				at = r.order.Uint64(value)
			} else {
				at = uint64(r.order.Uint32(value))
			}
			if _, err := r.file.ReadAt(data, int64(at)); err != nil {
				return fmt.Errorf("%w: read tag %d: %v", ErrMalformed, tag, err)
			}
		}
		r.fields[tag] = field{typ: typ, count: count, data: data}
	}
	return nil
}

func (r *Reader) uints(tag uint16) []uint64 {
	f, ok := r.fields[tag]
	if !ok {
		return nil
	}
	size := typeSize(f.typ)
	out := make([]uint64, 0, f.count)
	for i := 0; i < int(f.count); i++ {
		b := f.data[i*size : (i+1)*size]
		switch f.typ {
		case dtByte, dtUndefined, dtSByte:
			out = append(out, uint64(b[0]))
		case dtShort, dtSShort:
			out = append(out, uint64(r.order.Uint16(b)))
		case dtLong, dtSLong:
			out = append(out, uint64(r.order.Uint32(b)))
		case dtLong8, dtSLong8, dtIFD8:
			out = append(out, r.order.Uint64(b))
		default:
			return nil
		}
	}
	return out
}

func (r *Reader) first(tag uint16, fallback uint64) uint64 {
	if values := r.uints(tag); len(values) > 0 {
		return values[0]
	}
	return fallback
}

func (r *Reader) ascii(tag uint16) string {
	f, ok := r.fields[tag]
	if !ok || f.typ != dtASCII {
		return ""
	}
	return strings.TrimRight(string(f.data), "\x00")
}

func (r *Reader) decodeInfo() error {
	info := &r.info
	info.Width = int(r.first(tagImageWidth, 0))
	info.Height = int(r.first(tagImageLength, 0))
	if info.Width <= 0 || info.Height <= 0 {
		return fmt.Errorf("%w: missing image dimensions", ErrMalformed)
	}

	samples := int(r.first(tagSamplesPerPixel, 1))
	bits := r.uints(tagBitsPerSample)
	if len(bits) == 0 {
		bits = []uint64{1}
	}
	for _, b := range bits[1:] {
		if b != bits[0] {
			return fmt.Errorf("%w: mixed bits per sample %v", ErrUnsupportedPixelType, bits)
		}
	}
	info.BitsPerSample = int(bits[0])

	kind := pixel.KindUnsigned
	switch r.first(tagSampleFormat, sampleFormatUint) {
	case sampleFormatInt:
		kind = pixel.KindSigned
	case sampleFormatFloat:
		kind = pixel.KindFloat
	}
	info.Format = pixel.Format{
		Type:        pixel.TypeFor(kind, info.BitsPerSample),
		Samples:     samples,
		BigEndian:   r.order == binary.ByteOrder(binary.BigEndian),
		Interleaved: samples == 1 || r.first(tagPlanarConfiguration, planarChunky) == planarChunky,
	}
	info.Compression = Compression(r.first(tagCompression, uint64(CompressionNone)))
	info.Photometric = int(r.first(tagPhotometric, photometricMinIsBlack))
	info.ExtraSamples = len(r.uints(tagExtraSamples))
	if info.ExtraSamples == 0 && info.Photometric == photometricRGB && samples > 3 {
		info.ExtraSamples = samples - 3
	}
	info.Description = r.ascii(tagImageDescription)
	if ome, err := ParseOMEXML(info.Description); err == nil {
		info.OME = ome
	}

	info.TileWidth = int(r.first(tagTileWidth, 0))
	info.TileHeight = int(r.first(tagTileLength, 0))
	if info.Tiled() {
		r.offsets = r.uints(tagTileOffsets)
		r.counts = r.uints(tagTileByteCounts)
		cols, rows := info.Grid()
		if len(r.offsets) < cols*rows || len(r.counts) < cols*rows {
			return fmt.Errorf("%w: %d tile offsets for a %dx%d grid", ErrMalformed, len(r.offsets), cols, rows)
		}
		info.TileCount = cols * rows
	} else {
		r.offsets = r.uints(tagStripOffsets)
		r.counts = r.uints(tagStripByteCounts)
	}
	for _, c := range r.counts {
		info.CompressedBytes += c
	}
	return nil
}

// ReadTile returns the pixels of the tile at (col, row) cropped to its
// effective size, in the file's byte order.
func (r *Reader) ReadTile(col, row int) ([]byte, error) {
	info := r.info
	if !info.Tiled() {
		return nil, ErrNotTiled
	}
	if !info.Format.Interleaved {
		return nil, fmt.Errorf("%w: planar tiles", ErrUnsupportedLayout)
	}
	bpp := info.Format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedPixelType, info.BitsPerSample)
	}
	cols, rows := info.Grid()
	if col < 0 || row < 0 || col >= cols || row >= rows {
		return nil, fmt.Errorf("tile (%d,%d) outside %dx%d grid", col, row, cols, rows)
	}
	idx := row*cols + col
	if r.counts[idx] > maxFieldBytes {
		return nil, fmt.Errorf("%w: tile %d holds %d bytes", ErrMalformed, idx, r.counts[idx])
	}

	payload := make([]byte, r.counts[idx])
	if _, err := r.file.ReadAt(payload, int64(r.offsets[idx])); err != nil {
		return nil, fmt.Errorf("read tile %d: %w", idx, err)
	}
	full := info.TileWidth * info.TileHeight * bpp
	data, err := decode(info.Compression, payload, full)
	if err != nil {
		return nil, err
	}
	if len(data) < full {
		return nil, fmt.Errorf("%w: tile %d decodes to %d bytes, want %d", ErrMalformed, idx, len(data), full)
	}

	ew := min(info.TileWidth, info.Width-col*info.TileWidth)
	eh := min(info.TileHeight, info.Height-row*info.TileHeight)
	if ew == info.TileWidth && eh == info.TileHeight {
		return data[:full], nil
	}
	out := make([]byte, ew*eh*bpp)
	rowIn, rowOut := info.TileWidth*bpp, ew*bpp
	for y := 0; y < eh; y++ {
		copy(out[y*rowOut:(y+1)*rowOut], data[y*rowIn:y*rowIn+rowOut])
	}
	return out, nil
}
