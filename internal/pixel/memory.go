package pixel

import "fmt"

// Memory is a Source over a chunky or planar byte buffer held in memory. It
// backs synthetic canvases in tests and small composites.
type Memory struct {
	width  int
	height int
	format Format
	data   []byte
}

// NewMemory wraps data as a width x height canvas in format f. The buffer is
// used directly, not copied.
func NewMemory(width, height int, f Format, data []byte) (*Memory, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("memory source: invalid geometry %dx%d", width, height)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if want := f.RegionSize(width, height); len(data) != want {
		return nil, fmt.Errorf("memory source: buffer holds %d bytes, want %d", len(data), want)
	}
	return &Memory{width: width, height: height, format: f, data: data}, nil
}

func (m *Memory) Width() int     { return m.width }
func (m *Memory) Height() int    { return m.height }
func (m *Memory) Format() Format { return m.format }
func (m *Memory) Close() error   { return nil }

// ReadRegion copies the requested region out of the backing buffer.
func (m *Memory) ReadRegion(x, y, w, h int) ([]byte, error) {
	if err := CheckRegion(m.width, m.height, x, y, w, h); err != nil {
		return nil, err
	}
	if m.format.Interleaved || m.format.Samples <= 1 {
		bpp := m.format.BytesPerPixel()
		out := make([]byte, w*h*bpp)
		rowLen := w * bpp
		for row := 0; row < h; row++ {
			src := ((y+row)*m.width + x) * bpp
			copy(out[row*rowLen:(row+1)*rowLen], m.data[src:src+rowLen])
		}
		return out, nil
	}

	bps := m.format.Type.BytesPerSample()
	plane := m.width * m.height * bps
	out := make([]byte, w*h*bps*m.format.Samples)
	rowLen := w * bps
	for s := 0; s < m.format.Samples; s++ {
		dst := out[s*w*h*bps:]
		for row := 0; row < h; row++ {
			src := s*plane + ((y+row)*m.width+x)*bps
			copy(dst[row*rowLen:(row+1)*rowLen], m.data[src:src+rowLen])
		}
	}
	return out, nil
}
