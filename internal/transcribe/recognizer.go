// Package transcribe turns a waveform into a timestamped subtitle timeline
// by splitting it into bounded windows, detecting the spoken language per
// window, and reassembling per-window model output with global offsets.
package transcribe

import "context"

// Segment is one timestamped text unit as returned by the speech model,
// with times in seconds relative to the submitted window.
type Segment struct {
	Start float64
	End   float64
	Text  string
}

// LanguageScore is one candidate language with its detection probability.
type LanguageScore struct {
	Code        string
	Probability float64
}

// Options carries per-call decoding parameters.
type Options struct {
	// Language is the ISO 639-1 code to decode with.
	Language string
	// BeamSize is the beam-search width.
	BeamSize int
	// Temperature near zero keeps decoding deterministic.
	Temperature float64
	// ConditionOnPrevious feeds earlier in-window text back as context.
	ConditionOnPrevious bool
}

// Recognizer is the speech model boundary. Implementations receive mono
// audio at the model sample rate.
type Recognizer interface {
	// DetectLanguage ranks candidate languages for the given samples,
	// highest probability first.
	DetectLanguage(ctx context.Context, samples []float64, sampleRate int) ([]LanguageScore, error)
	// Transcribe decodes the given samples into window-relative segments.
	Transcribe(ctx context.Context, samples []float64, sampleRate int, opts Options) ([]Segment, error)
}
