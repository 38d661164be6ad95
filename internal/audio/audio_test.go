package audio_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"subtide/internal/audio"
)

func buildWAV(t *testing.T, sampleRate, channels int, frames [][]int16) []byte {
	t.Helper()
	var data bytes.Buffer
	for _, frame := range frames {
		if len(frame) != channels {
			t.Fatalf("frame has %d channels, want %d", len(frame), channels)
		}
		for _, sample := range frame {
			if err := binary.Write(&data, binary.LittleEndian, sample); err != nil {
				t.Fatal(err)
			}
		}
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	binary.Write(&out, binary.LittleEndian, uint32(36+data.Len()))
	out.WriteString("WAVE")
	out.WriteString("fmt ")
	binary.Write(&out, binary.LittleEndian, uint32(16))
	binary.Write(&out, binary.LittleEndian, uint16(1))
	binary.Write(&out, binary.LittleEndian, uint16(channels))
	binary.Write(&out, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&out, binary.LittleEndian, uint32(sampleRate*channels*2))
	binary.Write(&out, binary.LittleEndian, uint16(channels*2))
	binary.Write(&out, binary.LittleEndian, uint16(16))
	out.WriteString("data")
	binary.Write(&out, binary.LittleEndian, uint32(data.Len()))
	out.Write(data.Bytes())
	return out.Bytes()
}

func TestDecodeWAVMono(t *testing.T) {
	raw := buildWAV(t, 16000, 1, [][]int16{{0}, {16384}, {-16384}})
	buf, err := audio.DecodeWAV(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if buf.SampleRate != 16000 {
		t.Fatalf("sample rate = %d", buf.SampleRate)
	}
	want := []float64{0, 0.5, -0.5}
	if len(buf.Samples) != len(want) {
		t.Fatalf("got %d samples", len(buf.Samples))
	}
	for i, w := range want {
		if math.Abs(buf.Samples[i]-w) > 1e-4 {
			t.Fatalf("sample %d = %f, want %f", i, buf.Samples[i], w)
		}
	}
}

func TestDecodeWAVDownmixesStereo(t *testing.T) {
	raw := buildWAV(t, 44100, 2, [][]int16{{16384, 0}, {-16384, -16384}})
	buf, err := audio.DecodeWAV(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if math.Abs(buf.Samples[0]-0.25) > 1e-4 {
		t.Fatalf("downmix sample 0 = %f, want 0.25", buf.Samples[0])
	}
	if math.Abs(buf.Samples[1]+0.5) > 1e-4 {
		t.Fatalf("downmix sample 1 = %f, want -0.5", buf.Samples[1])
	}
}

func TestDecodeWAVRejectsNonPCM(t *testing.T) {
	raw := buildWAV(t, 16000, 1, [][]int16{{0}})
	// Patch the format code to IEEE float.
	raw[20] = 3
	if _, err := audio.DecodeWAV(bytes.NewReader(raw)); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestWriteWAVRoundTrip(t *testing.T) {
	in := &audio.Buffer{
		Samples:    []float64{0, 0.5, -0.5, 0.999},
		SampleRate: 16000,
	}
	var encoded bytes.Buffer
	if err := audio.WriteWAV(&encoded, in); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := audio.DecodeWAV(bytes.NewReader(encoded.Bytes()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.SampleRate != in.SampleRate || len(out.Samples) != len(in.Samples) {
		t.Fatalf("shape mismatch: %d samples at %d Hz", len(out.Samples), out.SampleRate)
	}
	for i := range in.Samples {
		if math.Abs(out.Samples[i]-in.Samples[i]) > 1e-3 {
			t.Fatalf("sample %d = %f, want %f", i, out.Samples[i], in.Samples[i])
		}
	}
}

func TestPreprocessNormalizesPeaks(t *testing.T) {
	buf := &audio.Buffer{Samples: []float64{2.0, -4.0, 1.0}, SampleRate: audio.ModelSampleRate}
	out := audio.Preprocess(buf)
	if peak := audio.Peak(out.Samples); peak > 1.0 {
		t.Fatalf("peak after normalize = %f", peak)
	}
	// Input untouched.
	if buf.Samples[1] != -4.0 {
		t.Fatalf("input mutated: %v", buf.Samples)
	}
}

func TestPreprocessResamplesToModelRate(t *testing.T) {
	samples := make([]float64, 32000)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * 440 * float64(i) / 32000)
	}
	out := audio.Preprocess(&audio.Buffer{Samples: samples, SampleRate: 32000})
	if out.SampleRate != audio.ModelSampleRate {
		t.Fatalf("rate = %d", out.SampleRate)
	}
	if got := len(out.Samples); got < 15900 || got > 16100 {
		t.Fatalf("resampled length = %d, want ~16000", got)
	}
}

func TestPreprocessRemovesDCAndGatesNoise(t *testing.T) {
	samples := make([]float64, 1600)
	for i := range samples {
		samples[i] = 0.5 // pure DC offset
	}
	out := audio.Preprocess(&audio.Buffer{Samples: samples, SampleRate: audio.ModelSampleRate})
	for i, s := range out.Samples {
		if s != 0 {
			t.Fatalf("sample %d = %f after DC removal and gating", i, s)
		}
	}
}
