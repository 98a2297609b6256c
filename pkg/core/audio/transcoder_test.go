package audio

import (
	"bytes"
	"testing"
)

func pcmFromSamples(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

func TestMulawRoundTrip(t *testing.T) {
	// Companding is lossy; round-tripped samples must stay close to the
	// original relative to the quantization step at that amplitude.
	for _, s := range []int16{0, 1, -1, 100, -100, 1000, -1000, 8000, -8000, 32000, -32000} {
		enc := LinearToMulaw(s)
		dec := MulawToLinear(enc)

		diff := int(s) - int(dec)
		if diff < 0 {
			diff = -diff
		}
		step := int(s)
		if step < 0 {
			step = -step
		}
		step = step/16 + 64
		if diff > step {
			t.Errorf("sample %d round-tripped to %d (diff %d > %d)", s, dec, diff, step)
		}
	}
}

func TestDecodeMulawLength(t *testing.T) {
	in := make([]byte, TelephonyFrameBytes)
	out := DecodeMulaw(in)
	if len(out) != TelephonyFrameBytes*2 {
		t.Fatalf("decoded length = %d, want %d", len(out), TelephonyFrameBytes*2)
	}
}

func TestResamplerRate(t *testing.T) {
	r := NewResampler(TelephonySampleRate, EngineSampleRate)

	in := make([]int16, 160)
	for i := range in {
		in[i] = int16(i * 50)
	}
	out := r.Resample(pcmFromSamples(in))

	// 8 kHz -> 24 kHz is exactly 3x.
	if len(out) != len(in)*3*2 {
		t.Fatalf("output bytes = %d, want %d", len(out), len(in)*3*2)
	}
}

func TestResamplerContinuityAcrossChunks(t *testing.T) {
	// Feeding one buffer in two halves must produce exactly the same
	// samples as feeding it whole: the carried state bridges the seam.
	samples := make([]int16, 400)
	for i := range samples {
		samples[i] = int16((i%80)*400 - 16000)
	}
	whole := pcmFromSamples(samples)

	r1 := NewResampler(TelephonySampleRate, EngineSampleRate)
	full := r1.Resample(whole)

	r2 := NewResampler(TelephonySampleRate, EngineSampleRate)
	split := append([]byte{}, r2.Resample(whole[:400])...)
	split = append(split, r2.Resample(whole[400:])...)

	if !bytes.Equal(full, split) {
		t.Fatal("split resample output differs from whole-buffer output")
	}
}

func TestTranscoderFraming(t *testing.T) {
	tr := NewTranscoder()
	frame := make([]byte, TelephonyFrameBytes)

	// One 20 ms telephony frame becomes 60 ms worth of buffered PCM at
	// 24 kHz: not enough for an 80 ms engine frame.
	if frames := tr.NarrowbandToEngine(frame); len(frames) != 0 {
		t.Fatalf("got %d frames after one telephony frame, want 0", len(frames))
	}

	// Each telephony frame yields 960 converted bytes; the fourth one
	// completes exactly one 3840-byte engine frame.
	tr.NarrowbandToEngine(frame)
	tr.NarrowbandToEngine(frame)
	frames := tr.NarrowbandToEngine(frame)
	if len(frames) != 1 {
		t.Fatalf("got %d frames after four telephony frames, want 1", len(frames))
	}
	if len(frames[0]) != EngineFrameBytes {
		t.Fatalf("engine frame length = %d, want %d", len(frames[0]), EngineFrameBytes)
	}
	if rest := tr.Flush(); len(rest) != 0 {
		t.Fatalf("unexpected %d leftover bytes after exact framing", len(rest))
	}
}

func TestTranscoderNoSampleLoss(t *testing.T) {
	tr := NewTranscoder()

	total := 0
	frame := make([]byte, TelephonyFrameBytes)
	for i := 0; i < 7; i++ {
		for _, f := range tr.NarrowbandToEngine(frame) {
			total += len(f)
		}
	}
	total += len(tr.Flush())

	// 7 frames * 160 samples * 3x upsample * 2 bytes.
	want := 7 * TelephonyFrameBytes * 3 * 2
	if total != want {
		t.Fatalf("total converted bytes = %d, want %d", total, want)
	}
}

func TestChunkFrames(t *testing.T) {
	data := make([]byte, 370)
	chunks := ChunkFrames(data, TelephonyFrameBytes)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if len(chunks[0]) != 160 || len(chunks[1]) != 160 || len(chunks[2]) != 50 {
		t.Fatalf("chunk sizes = %d,%d,%d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
	if ChunkFrames(nil, 160) != nil {
		t.Fatal("expected nil for empty input")
	}
}
