package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"subtide/internal/audio"
	"subtide/internal/services"
)

// WhisperConfig locates the whisper.cpp command line and model.
type WhisperConfig struct {
	Binary    string
	ModelPath string
	// WorkDir holds per-call temporary WAV and JSON files.
	WorkDir string
}

// WhisperRecognizer shells out to the whisper.cpp CLI. Each call writes the
// window to a temporary WAV, runs the binary, and parses its JSON output.
type WhisperRecognizer struct {
	cfg WhisperConfig
	// runCommand is swapped in tests.
	runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewWhisperRecognizer builds a CLI-backed recognizer.
func NewWhisperRecognizer(cfg WhisperConfig) *WhisperRecognizer {
	return &WhisperRecognizer{
		cfg: cfg,
		runCommand: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
			return cmd.CombinedOutput()
		},
	}
}

// detectedLanguagePattern matches whisper.cpp's detection report, e.g.
// "auto-detected language: en (p = 0.958218)".
var detectedLanguagePattern = regexp.MustCompile(`auto-detected language:\s*([a-z]{2,3})\s*\(p\s*=\s*([0-9.]+)\)`)

// DetectLanguage runs the binary in detect-only mode and parses the ranked
// report from its output.
func (w *WhisperRecognizer) DetectLanguage(ctx context.Context, samples []float64, sampleRate int) ([]LanguageScore, error) {
	wavPath, cleanup, err := w.writeTempWAV(samples, sampleRate)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	args := []string{
		"-m", w.cfg.ModelPath,
		"-f", wavPath,
		"--detect-language",
	}
	output, err := w.runCommand(ctx, w.cfg.Binary, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "whisper", "detect-language", strings.TrimSpace(string(output)), err)
	}

	matches := detectedLanguagePattern.FindAllStringSubmatch(string(output), -1)
	if len(matches) == 0 {
		return nil, services.Wrap(services.ErrExternalTool, "whisper", "detect-language", "no language report in output", nil)
	}

	scores := make([]LanguageScore, 0, len(matches))
	for _, match := range matches {
		probability, parseErr := strconv.ParseFloat(match[2], 64)
		if parseErr != nil {
			continue
		}
		scores = append(scores, LanguageScore{Code: match[1], Probability: probability})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Probability > scores[j].Probability })
	return scores, nil
}

// whisperOutput mirrors the relevant part of whisper.cpp's -oj JSON file.
type whisperOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// Transcribe decodes one window and returns window-relative segments.
func (w *WhisperRecognizer) Transcribe(ctx context.Context, samples []float64, sampleRate int, opts Options) ([]Segment, error) {
	wavPath, cleanup, err := w.writeTempWAV(samples, sampleRate)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	outPrefix := strings.TrimSuffix(wavPath, ".wav") + "-out"
	defer os.Remove(outPrefix + ".json")

	args := []string{
		"-m", w.cfg.ModelPath,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
		"-bs", strconv.Itoa(opts.BeamSize),
		"-tp", strconv.FormatFloat(opts.Temperature, 'f', -1, 64),
	}
	if opts.Language != "" {
		args = append(args, "-l", opts.Language)
	}
	if !opts.ConditionOnPrevious {
		args = append(args, "--no-context")
	}

	output, err := w.runCommand(ctx, w.cfg.Binary, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "whisper", "transcribe", strings.TrimSpace(string(output)), err)
	}

	data, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "whisper", "transcribe", "read model output", err)
	}

	var parsed whisperOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "whisper", "transcribe", "parse model output", err)
	}

	segments := make([]Segment, 0, len(parsed.Transcription))
	for _, entry := range parsed.Transcription {
		segments = append(segments, Segment{
			Start: float64(entry.Offsets.From) / 1000.0,
			End:   float64(entry.Offsets.To) / 1000.0,
			Text:  entry.Text,
		})
	}
	return segments, nil
}

func (w *WhisperRecognizer) writeTempWAV(samples []float64, sampleRate int) (string, func(), error) {
	file, err := os.CreateTemp(w.cfg.WorkDir, "chunk-*.wav")
	if err != nil {
		return "", nil, fmt.Errorf("create chunk file: %w", err)
	}
	path := file.Name()
	cleanup := func() { _ = os.Remove(path) }

	buf := &audio.Buffer{Samples: samples, SampleRate: sampleRate}
	if err := audio.WriteWAV(file, buf); err != nil {
		_ = file.Close()
		cleanup()
		return "", nil, err
	}
	if err := file.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close chunk file: %w", err)
	}
	return filepath.Clean(path), cleanup, nil
}
