package transcribe

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"subtide/internal/audio"
	"subtide/internal/logging"
	"subtide/internal/media"
	"subtide/internal/vad"
)

// ErrNoSubtitles reports that no chunk produced any segment. This is a
// caller-visible outcome, not a pipeline crash: the job completes with an
// error status instead of aborting.
var ErrNoSubtitles = errors.New("no subtitles produced")

const (
	// silencePeak is the maximum absolute amplitude below which a chunk is
	// considered silent and skipped.
	silencePeak = 0.01
)

// ChunkerConfig carries the windowing and decoding parameters.
type ChunkerConfig struct {
	// ChunkSeconds is the window length submitted to the model per call.
	ChunkSeconds int
	// MinChunkSeconds is the shortest window worth transcribing.
	MinChunkSeconds float64
	BeamSize        int
	Temperature     float64
	// ConfidenceWarn flags windows whose top detected-language probability
	// falls below this value. Transcription proceeds regardless.
	ConfidenceWarn float64
	// VADSensitivity selects the voice-activity threshold set, 0 (least
	// sensitive) through 3 (most sensitive).
	VADSensitivity int
}

// Result is the reassembled timeline for one waveform.
type Result struct {
	Subtitles []media.Subtitle
	// Language is the detected language that appeared most often across
	// transcribed chunks.
	Language string
}

// Chunker drives chunked transcription over a recognizer.
type Chunker struct {
	rec       Recognizer
	cfg       ChunkerConfig
	segmenter *vad.Segmenter
	logger    *slog.Logger
}

// NewChunker builds a chunker. A nil logger disables logging.
func NewChunker(rec Recognizer, cfg ChunkerConfig, logger *slog.Logger) *Chunker {
	segmenter, err := vad.New(cfg.VADSensitivity)
	if err != nil {
		// Out-of-range sensitivity is caught by config validation; default
		// to the most permissive setting rather than failing construction.
		segmenter, _ = vad.New(3)
	}
	return &Chunker{
		rec:       rec,
		cfg:       cfg,
		segmenter: segmenter,
		logger:    logging.WithComponent(logger, "transcriber"),
	}
}

// Transcribe preprocesses the waveform once, then walks it in fixed windows:
// silent or too-short windows are skipped, the language is detected per
// window, and model segments are shifted by the window's start offset into
// global timeline seconds. A failing window is logged and skipped; it never
// aborts later windows. Returns ErrNoSubtitles when nothing was produced.
func (c *Chunker) Transcribe(ctx context.Context, buf *audio.Buffer) (*Result, error) {
	prepared := audio.Preprocess(buf)
	rate := prepared.SampleRate
	chunkSamples := c.cfg.ChunkSeconds * rate

	c.logger.Info("starting chunked transcription",
		logging.Float64("duration_seconds", prepared.Seconds()),
		logging.Int("sample_rate", rate),
		logging.Int("chunk_seconds", c.cfg.ChunkSeconds),
	)

	var (
		segments  []Segment
		langVotes = map[string]int{}
	)

	for chunkIdx, start := 0, 0; start < len(prepared.Samples); chunkIdx, start = chunkIdx+1, start+chunkSamples {
		end := start + chunkSamples
		if end > len(prepared.Samples) {
			end = len(prepared.Samples)
		}
		chunk := prepared.Samples[start:end]
		duration := float64(len(chunk)) / float64(rate)

		if duration < c.cfg.MinChunkSeconds {
			c.logger.Warn("chunk too short, skipping",
				logging.Int("chunk", chunkIdx),
				logging.Float64("duration_seconds", duration),
			)
			continue
		}
		if audio.Peak(chunk) < silencePeak {
			c.logger.Warn("chunk almost silent, skipping",
				logging.Int("chunk", chunkIdx),
			)
			continue
		}
		if spans := c.segmenter.Spans(chunk, rate); len(spans) == 0 {
			c.logger.Warn("no voiced frames in chunk, skipping",
				logging.Int("chunk", chunkIdx),
			)
			continue
		}

		chunkSegments, lang, err := c.transcribeChunk(ctx, chunk, rate, chunkIdx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			c.logger.Error("chunk transcription failed, continuing",
				logging.Int("chunk", chunkIdx),
				logging.Error(err),
			)
			continue
		}
		if lang != "" {
			langVotes[lang]++
		}

		offset := float64(start) / float64(rate)
		for _, seg := range chunkSegments {
			seg.Start += offset
			seg.End += offset
			segments = append(segments, seg)
		}
	}

	if len(segments) == 0 {
		c.logger.Warn("no segments produced in any chunk")
		return nil, ErrNoSubtitles
	}

	subtitles := make([]media.Subtitle, 0, len(segments))
	for i, seg := range segments {
		subtitles = append(subtitles, media.Subtitle{
			ID:        strconv.Itoa(i),
			StartTime: seg.Start,
			EndTime:   seg.End,
			Text:      strings.TrimSpace(seg.Text),
		})
	}

	result := &Result{
		Subtitles: subtitles,
		Language:  majorityLanguage(langVotes),
	}
	c.logger.Info("transcription complete",
		logging.Int("subtitles", len(subtitles)),
		logging.String("language", result.Language),
	)
	return result, nil
}

func (c *Chunker) transcribeChunk(ctx context.Context, chunk []float64, rate, chunkIdx int) ([]Segment, string, error) {
	scores, err := c.rec.DetectLanguage(ctx, chunk, rate)
	if err != nil {
		return nil, "", err
	}

	lang := ""
	confidence := 0.0
	if len(scores) > 0 {
		lang = scores[0].Code
		confidence = scores[0].Probability
	}
	if confidence < c.cfg.ConfidenceWarn {
		// Low confidence is observability-only; decoding still uses the
		// top candidate.
		c.logger.Warn("low language detection confidence",
			logging.Int("chunk", chunkIdx),
			logging.String("language", lang),
			logging.Float64("confidence", roundConfidence(confidence)),
		)
	}

	segments, err := c.rec.Transcribe(ctx, chunk, rate, Options{
		Language:            lang,
		BeamSize:            c.cfg.BeamSize,
		Temperature:         c.cfg.Temperature,
		ConditionOnPrevious: true,
	})
	if err != nil {
		return nil, lang, err
	}
	if len(segments) == 0 {
		c.logger.Warn("no segments generated in chunk", logging.Int("chunk", chunkIdx))
	}
	return segments, lang, nil
}

func majorityLanguage(votes map[string]int) string {
	best := ""
	bestCount := 0
	for lang, count := range votes {
		if count > bestCount || (count == bestCount && lang < best) {
			best = lang
			bestCount = count
		}
	}
	return best
}

func roundConfidence(value float64) float64 {
	return math.Round(value*1000) / 1000
}
