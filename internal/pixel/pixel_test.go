package pixel_test

import (
	"bytes"
	"errors"
	"testing"

	"imageassembly/internal/pixel"
)

func TestTypeForRoundTripsBitDepths(t *testing.T) {
	cases := []struct {
		kind pixel.SampleKind
		bits int
		want pixel.Type
	}{
		{pixel.KindUnsigned, 8, pixel.Uint8},
		{pixel.KindUnsigned, 16, pixel.Uint16},
		{pixel.KindUnsigned, 32, pixel.Uint32},
		{pixel.KindSigned, 8, pixel.Int8},
		{pixel.KindSigned, 16, pixel.Int16},
		{pixel.KindSigned, 32, pixel.Int32},
		{pixel.KindFloat, 32, pixel.Float32},
		{pixel.KindFloat, 64, pixel.Float64},
		{pixel.KindFloat, 16, pixel.Unknown},
		{pixel.KindUnsigned, 12, pixel.Unknown},
	}
	for _, tc := range cases {
		got := pixel.TypeFor(tc.kind, tc.bits)
		if got != tc.want {
			t.Fatalf("TypeFor(%d, %d) = %v, want %v", tc.kind, tc.bits, got, tc.want)
		}
		if got != pixel.Unknown && got.BytesPerSample()*8 != tc.bits {
			t.Fatalf("%v reports %d bytes per sample for %d bits", got, got.BytesPerSample(), tc.bits)
		}
	}
}

func TestParseTypeAcceptsOMENames(t *testing.T) {
	for _, name := range []string{"int8", "uint8", "int16", "uint16", "int32", "uint32", "float", "double"} {
		typ, err := pixel.ParseType(name)
		if err != nil {
			t.Fatalf("ParseType(%q): %v", name, err)
		}
		if typ.String() != name {
			t.Fatalf("ParseType(%q).String() = %q", name, typ.String())
		}
	}
	if _, err := pixel.ParseType("bit"); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}

func TestSwapEndian(t *testing.T) {
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	pixel.SwapEndian(data, 2)
	if !bytes.Equal(data, []byte{2, 1, 4, 3, 6, 5, 8, 7}) {
		t.Fatalf("16-bit swap: %v", data)
	}
	data = []byte{1, 2, 3, 4, 5, 6, 7, 8}
	pixel.SwapEndian(data, 4)
	if !bytes.Equal(data, []byte{4, 3, 2, 1, 8, 7, 6, 5}) {
		t.Fatalf("32-bit swap: %v", data)
	}
	data = []byte{1, 2, 3, 4, 5, 6, 7, 8}
	pixel.SwapEndian(data, 8)
	if !bytes.Equal(data, []byte{8, 7, 6, 5, 4, 3, 2, 1}) {
		t.Fatalf("64-bit swap: %v", data)
	}
}

func TestInterleaveConvertsPlanarToChunky(t *testing.T) {
	planar := []byte{
		1, 2, 3, // R
		4, 5, 6, // G
		7, 8, 9, // B
	}
	got := pixel.Interleave(planar, 3, 3, 1)
	want := []byte{1, 4, 7, 2, 5, 8, 3, 6, 9}
	if !bytes.Equal(got, want) {
		t.Fatalf("Interleave = %v, want %v", got, want)
	}
}

func TestMemoryReadRegionChunky(t *testing.T) {
	f := pixel.Format{Type: pixel.Uint16, Samples: 1, BigEndian: true, Interleaved: true}
	data := make([]byte, f.RegionSize(4, 3))
	for i := range data {
		data[i] = byte(i)
	}
	src, err := pixel.NewMemory(4, 3, f, data)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	got, err := src.ReadRegion(1, 1, 2, 2)
	if err != nil {
		t.Fatalf("ReadRegion: %v", err)
	}
	// Row 1 starts at byte 8, pixel 1 at byte 10.
	want := []byte{10, 11, 12, 13, 18, 19, 20, 21}
	if !bytes.Equal(got, want) {
		t.Fatalf("ReadRegion = %v, want %v", got, want)
	}
}

func TestMemoryReadRegionPlanar(t *testing.T) {
	f := pixel.Format{Type: pixel.Uint8, Samples: 2, Interleaved: false}
	// 2x2 canvas, plane 0 = 0..3, plane 1 = 10..13
	data := []byte{0, 1, 2, 3, 10, 11, 12, 13}
	src, err := pixel.NewMemory(2, 2, f, data)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	got, err := src.ReadRegion(1, 0, 1, 2)
	if err != nil {
		t.Fatalf("ReadRegion: %v", err)
	}
	if want := []byte{1, 3, 11, 13}; !bytes.Equal(got, want) {
		t.Fatalf("ReadRegion = %v, want %v", got, want)
	}
}

func TestMemoryReadRegionRejectsOutOfBounds(t *testing.T) {
	f := pixel.Format{Type: pixel.Uint8, Samples: 1, Interleaved: true}
	src, err := pixel.NewMemory(2, 2, f, make([]byte, 4))
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	if _, err := src.ReadRegion(1, 1, 2, 1); !errors.Is(err, pixel.ErrRegionOutOfBounds) {
		t.Fatalf("expected ErrRegionOutOfBounds, got %v", err)
	}
	if _, err := src.ReadRegion(0, 0, 0, 1); !errors.Is(err, pixel.ErrRegionOutOfBounds) {
		t.Fatalf("expected ErrRegionOutOfBounds for empty region, got %v", err)
	}
}

func TestNormalizeSwapsAndInterleaves(t *testing.T) {
	from := pixel.Format{Type: pixel.Uint16, Samples: 2, BigEndian: true, Interleaved: false}
	to := pixel.Format{Type: pixel.Uint16, Samples: 2, BigEndian: false, Interleaved: true}
	// one pixel, planar: sample0 = 0x0102, sample1 = 0x0304
	got := pixel.Normalize([]byte{0x01, 0x02, 0x03, 0x04}, 1, from, to)
	if want := []byte{0x02, 0x01, 0x04, 0x03}; !bytes.Equal(got, want) {
		t.Fatalf("Normalize = %x, want %x", got, want)
	}
}
