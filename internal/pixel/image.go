package pixel

import (
	"fmt"
	"image"
	"image/color"
)

// FormatForModel maps a decoder color model to the raw layout FromImage
// produces for it. Multi-byte samples are big-endian, matching the Pix
// layout of the standard image types. Alpha is dropped.
func FormatForModel(model color.Model) (Format, error) {
	switch model {
	case color.GrayModel:
		return Format{Type: Uint8, Samples: 1, Interleaved: true}, nil
	case color.Gray16Model:
		return Format{Type: Uint16, Samples: 1, BigEndian: true, Interleaved: true}, nil
	case color.RGBAModel, color.NRGBAModel:
		return Format{Type: Uint8, Samples: 3, Interleaved: true}, nil
	case color.RGBA64Model, color.NRGBA64Model:
		return Format{Type: Uint16, Samples: 3, BigEndian: true, Interleaved: true}, nil
	default:
		return Format{}, fmt.Errorf("unsupported color model %T", model)
	}
}

// FromImage flattens a decoded image into tightly packed rows in the format
// FormatForModel reports for its color model.
func FromImage(img image.Image) ([]byte, Format, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	switch src := img.(type) {
	case *image.Gray:
		f, _ := FormatForModel(color.GrayModel)
		return packRows(src.Pix, src.Stride, w, h, 1, 1), f, nil
	case *image.Gray16:
		f, _ := FormatForModel(color.Gray16Model)
		return packRows(src.Pix, src.Stride, w, h, 2, 2), f, nil
	case *image.RGBA:
		f, _ := FormatForModel(color.RGBAModel)
		return packRows(src.Pix, src.Stride, w, h, 4, 3), f, nil
	case *image.NRGBA:
		f, _ := FormatForModel(color.NRGBAModel)
		return packRows(src.Pix, src.Stride, w, h, 4, 3), f, nil
	case *image.RGBA64:
		f, _ := FormatForModel(color.RGBA64Model)
		return packRows(src.Pix, src.Stride, w, h, 8, 6), f, nil
	case *image.NRGBA64:
		f, _ := FormatForModel(color.NRGBA64Model)
		return packRows(src.Pix, src.Stride, w, h, 8, 6), f, nil
	default:
		return nil, Format{}, fmt.Errorf("unsupported image type %T", img)
	}
}

// packRows copies the first keep bytes of every inBpp-wide pixel.
func packRows(pix []byte, stride, w, h, inBpp, keep int) []byte {
	out := make([]byte, w*h*keep)
	if inBpp == keep {
		rowLen := w * keep
		for y := 0; y < h; y++ {
			copy(out[y*rowLen:(y+1)*rowLen], pix[y*stride:y*stride+rowLen])
		}
		return out
	}
	o := 0
	for y := 0; y < h; y++ {
		row := pix[y*stride:]
		for x := 0; x < w; x++ {
			copy(out[o:o+keep], row[x*inBpp:x*inBpp+keep])
			o += keep
		}
	}
	return out
}
