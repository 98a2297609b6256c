// Package audio converts between the telephony leg's narrowband format
// (mu-law, 8 kHz, 20 ms frames) and the speech engine's wideband format
// (PCM s16le, 24 kHz, 80 ms frames). The return path needs no conversion:
// synthesis is requested directly in the telephony encoding.
package audio

// Telephony media stream format.
const (
	TelephonySampleRate = 8000
	// TelephonyFrameBytes is one 20 ms mu-law frame at 8 kHz.
	TelephonyFrameBytes = 160
)

// Speech engine transcription input format.
const (
	EngineSampleRate = 24000
	// EngineFrameSamples is the vendor-recommended 80 ms chunk at 24 kHz.
	EngineFrameSamples = 1920
	EngineFrameBytes   = EngineFrameSamples * 2
)

// Resampler converts 16-bit mono PCM between sample rates using linear
// interpolation. State is carried across calls so consecutive chunks join
// without clicks or drift.
type Resampler struct {
	fromRate int
	toRate   int

	last   int16
	primed bool
	// pos is the time of the next output sample, measured from the
	// previous input sample in units of 1/toRate input intervals.
	pos int
}

// NewResampler creates a resampler from fromRate to toRate Hz.
func NewResampler(fromRate, toRate int) *Resampler {
	return &Resampler{fromRate: fromRate, toRate: toRate}
}

// Resample converts a chunk of 16-bit little-endian PCM. Every input
// sample is consumed exactly once; output length over a long stream
// converges to len(in) * toRate / fromRate.
func (r *Resampler) Resample(in []byte) []byte {
	n := len(in) / 2
	if n == 0 {
		return nil
	}

	out := make([]byte, 0, (n*r.toRate/r.fromRate+1)*2)
	for i := 0; i < n; i++ {
		cur := int16(in[i*2]) | int16(in[i*2+1])<<8
		if !r.primed {
			r.last = cur
			r.primed = true
		}
		for r.pos < r.toRate {
			// Interpolate between the previous and current sample.
			v := int(r.last) + (int(cur)-int(r.last))*r.pos/r.toRate
			out = append(out, byte(v), byte(v>>8))
			r.pos += r.fromRate
		}
		r.pos -= r.toRate
		r.last = cur
	}
	return out
}

// Reset clears the carried state. Use only at a genuine stream boundary.
func (r *Resampler) Reset() {
	r.last = 0
	r.primed = false
	r.pos = 0
}

// Transcoder adapts the telephony leg's inbound audio to engine frames.
// 20 ms narrowband frames do not line up with 80 ms engine frames, so
// converted PCM is buffered and released in exact EngineFrameBytes units;
// no sample is ever dropped or duplicated across the size mismatch.
type Transcoder struct {
	resampler *Resampler
	pending   []byte
}

// NewTranscoder creates a transcoder for the fixed telephony-to-engine path.
func NewTranscoder() *Transcoder {
	return &Transcoder{
		resampler: NewResampler(TelephonySampleRate, EngineSampleRate),
		pending:   make([]byte, 0, 2*EngineFrameBytes),
	}
}

// NarrowbandToEngine converts one inbound mu-law frame and returns zero or
// more complete engine frames. Partial data stays buffered for the next call.
func (t *Transcoder) NarrowbandToEngine(frame []byte) [][]byte {
	pcm := t.resampler.Resample(DecodeMulaw(frame))
	t.pending = append(t.pending, pcm...)

	var frames [][]byte
	for len(t.pending) >= EngineFrameBytes {
		out := make([]byte, EngineFrameBytes)
		copy(out, t.pending[:EngineFrameBytes])
		frames = append(frames, out)
		t.pending = t.pending[EngineFrameBytes:]
	}
	return frames
}

// Flush returns whatever buffered PCM has not yet filled a frame.
func (t *Transcoder) Flush() []byte {
	if len(t.pending) == 0 {
		return nil
	}
	out := make([]byte, len(t.pending))
	copy(out, t.pending)
	t.pending = t.pending[:0]
	return out
}

// EngineToNarrowband is the outbound direction. Synthesis is requested in
// the telephony-native encoding, so this is a pass-through.
func EngineToNarrowband(chunk []byte) []byte {
	return chunk
}

// ChunkFrames splits data into size-byte chunks; the last chunk may be short.
func ChunkFrames(data []byte, size int) [][]byte {
	if size <= 0 || len(data) == 0 {
		return nil
	}
	chunks := make([][]byte, 0, (len(data)+size-1)/size)
	for len(data) > size {
		chunks = append(chunks, data[:size])
		data = data[size:]
	}
	return append(chunks, data)
}
