package pixel

// SwapEndian reverses the byte order of every sample in data in place.
// Single-byte samples are left untouched.
func SwapEndian(data []byte, bytesPerSample int) {
	switch bytesPerSample {
	case 2:
		for i := 0; i+1 < len(data); i += 2 {
			data[i], data[i+1] = data[i+1], data[i]
		}
	case 4:
		for i := 0; i+3 < len(data); i += 4 {
			data[i], data[i+1], data[i+2], data[i+3] = data[i+3], data[i+2], data[i+1], data[i]
		}
	case 8:
		for i := 0; i+7 < len(data); i += 8 {
			for j := 0; j < 4; j++ {
				data[i+j], data[i+7-j] = data[i+7-j], data[i+j]
			}
		}
	}
}

// Interleave converts a planar region (all of sample 0, then sample 1, ...)
// of pixels pixels into chunky order. It returns a new slice.
func Interleave(planar []byte, pixels, samples, bytesPerSample int) []byte {
	if samples <= 1 {
		return planar
	}
	out := make([]byte, len(planar))
	plane := pixels * bytesPerSample
	bpp := samples * bytesPerSample
	for s := 0; s < samples; s++ {
		src := planar[s*plane : (s+1)*plane]
		for p := 0; p < pixels; p++ {
			copy(out[p*bpp+s*bytesPerSample:p*bpp+(s+1)*bytesPerSample], src[p*bytesPerSample:(p+1)*bytesPerSample])
		}
	}
	return out
}

// Normalize rewrites region bytes read in format from into the byte order and
// interleaving of format to. Sample type and count must already agree.
func Normalize(data []byte, pixels int, from, to Format) []byte {
	bps := from.Type.BytesPerSample()
	if !from.Interleaved && from.Samples > 1 && to.Interleaved {
		data = Interleave(data, pixels, from.Samples, bps)
	}
	if from.BigEndian != to.BigEndian {
		SwapEndian(data, bps)
	}
	return data
}
