package audio

import "math"

// ModelSampleRate is the rate the speech model expects.
const ModelSampleRate = 16000

// NoiseFloor is the magnitude below which samples are treated as noise.
const NoiseFloor = 0.01

// Preprocess conditions a waveform for transcription. Applied once to the
// whole buffer, in order: peak normalization when samples exceed [-1, 1],
// resampling to the model rate, DC removal, and a noise gate. The input
// buffer is not modified.
func Preprocess(buf *Buffer) *Buffer {
	out := &Buffer{
		Samples:    append([]float64(nil), buf.Samples...),
		SampleRate: buf.SampleRate,
	}

	if peak := Peak(out.Samples); peak > 1.0 {
		for i := range out.Samples {
			out.Samples[i] /= peak
		}
	}

	if out.SampleRate != ModelSampleRate {
		out.Samples = Resample(out.Samples, out.SampleRate, ModelSampleRate)
		out.SampleRate = ModelSampleRate
	}

	removeDC(out.Samples)

	for i, s := range out.Samples {
		if math.Abs(s) < NoiseFloor {
			out.Samples[i] = 0
		}
	}

	return out
}

// Resample converts samples between rates by linear interpolation.
func Resample(samples []float64, fromRate, toRate int) []float64 {
	if fromRate == toRate || len(samples) == 0 {
		return append([]float64(nil), samples...)
	}

	ratio := float64(fromRate) / float64(toRate)
	outLen := int(math.Round(float64(len(samples)) / ratio))
	if outLen < 1 {
		outLen = 1
	}
	out := make([]float64, outLen)
	for i := range out {
		pos := float64(i) * ratio
		left := int(pos)
		if left >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := pos - float64(left)
		out[i] = samples[left]*(1-frac) + samples[left+1]*frac
	}
	return out
}

func removeDC(samples []float64) {
	if len(samples) == 0 {
		return
	}
	mean := 0.0
	for _, s := range samples {
		mean += s
	}
	mean /= float64(len(samples))
	for i := range samples {
		samples[i] -= mean
	}
}
