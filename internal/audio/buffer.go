// Package audio handles waveform decode and the preprocessing applied before
// transcription. Buffers are mono float64 samples in [-1, 1] and live only
// for the duration of one job.
package audio

import "time"

// Buffer is a mono waveform at a known sample rate.
type Buffer struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the buffer length as a duration.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	seconds := float64(len(b.Samples)) / float64(b.SampleRate)
	return time.Duration(seconds * float64(time.Second))
}

// Seconds returns the buffer length in seconds.
func (b *Buffer) Seconds() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// Peak returns the maximum absolute sample value.
func Peak(samples []float64) float64 {
	peak := 0.0
	for _, s := range samples {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}
