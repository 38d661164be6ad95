// Package vad classifies fixed-duration audio frames as voiced or unvoiced
// and derives contiguous voiced spans or a voice-gated waveform.
package vad

import (
	"fmt"
	"math"
	"time"
)

// FrameDuration is the classification window. 30ms frames balance boundary
// resolution against per-frame statistics stability.
const FrameDuration = 30 * time.Millisecond

// Span is a contiguous voiced sample range [Start, End) in the original
// sample index space.
type Span struct {
	Start int
	End   int
}

// thresholds holds the per-sensitivity decision parameters. Higher
// sensitivity admits quieter frames as speech.
type thresholds struct {
	minRMS float64
	maxZCR float64
}

var sensitivityTable = [4]thresholds{
	{minRMS: 0.060, maxZCR: 0.25},
	{minRMS: 0.030, maxZCR: 0.30},
	{minRMS: 0.015, maxZCR: 0.35},
	{minRMS: 0.008, maxZCR: 0.40},
}

// Segmenter classifies frames using short-time energy and zero-crossing
// rate. Classification depends only on frame contents and the configured
// sensitivity; there is no state carried across calls.
type Segmenter struct {
	params thresholds
}

// New builds a segmenter with the given sensitivity, 0 (least sensitive)
// through 3 (most sensitive).
func New(sensitivity int) (*Segmenter, error) {
	if sensitivity < 0 || sensitivity > 3 {
		return nil, fmt.Errorf("vad: sensitivity %d outside [0, 3]", sensitivity)
	}
	return &Segmenter{params: sensitivityTable[sensitivity]}, nil
}

// FrameSize returns the number of samples per frame at the given rate.
func FrameSize(sampleRate int) int {
	return int(float64(sampleRate) * FrameDuration.Seconds())
}

// Gate returns only the voiced-frame samples, concatenated in order.
func (s *Segmenter) Gate(samples []float64, sampleRate int) []float64 {
	gated, _ := s.GateWithSpans(samples, sampleRate)
	return gated
}

// GateWithSpans returns the gated waveform together with the original-space
// sample spans that contributed to it.
func (s *Segmenter) GateWithSpans(samples []float64, sampleRate int) ([]float64, []Span) {
	frameSize := FrameSize(sampleRate)
	if frameSize <= 0 {
		return nil, nil
	}

	var (
		gated      []float64
		spans      []Span
		inVoiced   bool
		voicedFrom int
	)

	// A trailing partial frame is dropped, not zero-padded.
	end := 0
	for start := 0; start+frameSize <= len(samples); start += frameSize {
		frame := samples[start : start+frameSize]
		voiced := s.classify(frame)

		if voiced && !inVoiced {
			voicedFrom = start
			inVoiced = true
		}
		if !voiced && inVoiced {
			spans = append(spans, Span{Start: voicedFrom, End: start})
			inVoiced = false
		}
		if voiced {
			gated = append(gated, frame...)
		}
		end = start + frameSize
	}

	// A span open at end-of-signal closes at the final processed frame
	// boundary.
	if inVoiced {
		spans = append(spans, Span{Start: voicedFrom, End: end})
	}
	return gated, spans
}

// Spans returns the voiced spans alone, without gating the waveform.
func (s *Segmenter) Spans(samples []float64, sampleRate int) []Span {
	frameSize := FrameSize(sampleRate)
	if frameSize <= 0 {
		return nil
	}

	var (
		spans      []Span
		inVoiced   bool
		voicedFrom int
	)

	end := 0
	for start := 0; start+frameSize <= len(samples); start += frameSize {
		voiced := s.classify(samples[start : start+frameSize])
		if voiced && !inVoiced {
			voicedFrom = start
			inVoiced = true
		}
		if !voiced && inVoiced {
			spans = append(spans, Span{Start: voicedFrom, End: start})
			inVoiced = false
		}
		end = start + frameSize
	}
	if inVoiced {
		spans = append(spans, Span{Start: voicedFrom, End: end})
	}
	return spans
}

// classify decides voiced/unvoiced from frame energy and zero-crossing
// rate. Speech carries enough energy to clear the sensitivity floor while
// keeping a crossing rate below that of broadband noise.
func (s *Segmenter) classify(frame []float64) bool {
	if len(frame) == 0 {
		return false
	}

	energy := 0.0
	crossings := 0
	for i, sample := range frame {
		energy += sample * sample
		if i > 0 && (sample >= 0) != (frame[i-1] >= 0) {
			crossings++
		}
	}
	rms := math.Sqrt(energy / float64(len(frame)))
	zcr := float64(crossings) / float64(len(frame))

	return rms >= s.params.minRMS && zcr <= s.params.maxZCR
}
