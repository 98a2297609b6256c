package audio

// G.711 mu-law companding. The telephony leg carries 8 kHz mu-law; the
// speech engine wants 16-bit linear PCM, so every inbound frame passes
// through DecodeMulaw before resampling.

const (
	mulawBias = 0x84
	mulawClip = 32635
)

// MulawToLinear expands a single mu-law byte to a 16-bit linear sample.
func MulawToLinear(u byte) int16 {
	u = ^u
	sign := u & 0x80
	exp := (u >> 4) & 0x07
	mant := u & 0x0F
	value := (int(mant) << 3) + mulawBias
	value <<= uint(exp)
	value -= mulawBias
	if sign != 0 {
		return int16(-value)
	}
	return int16(value)
}

// LinearToMulaw compresses a 16-bit linear sample to a mu-law byte.
func LinearToMulaw(sample int16) byte {
	sign := byte(0)
	s := int(sample)
	if s < 0 {
		s = -s
		sign = 0x80
	}
	if s > mulawClip {
		s = mulawClip
	}
	s += mulawBias

	exp := byte(7)
	for mask := 0x4000; s&mask == 0 && exp > 0; mask >>= 1 {
		exp--
	}
	mant := byte((s >> (uint(exp) + 3)) & 0x0F)
	return ^(sign | exp<<4 | mant)
}

// DecodeMulaw expands mu-law bytes to 16-bit little-endian PCM.
func DecodeMulaw(data []byte) []byte {
	out := make([]byte, len(data)*2)
	for i, u := range data {
		s := MulawToLinear(u)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// EncodeMulaw compresses 16-bit little-endian PCM to mu-law bytes.
// A trailing odd byte is ignored.
func EncodeMulaw(pcm []byte) []byte {
	n := len(pcm) / 2
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = LinearToMulaw(s)
	}
	return out
}
