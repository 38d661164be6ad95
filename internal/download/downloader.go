// Package download wraps the external yt-dlp tool: best-available audio is
// extracted to WAV and source metadata is captured from the tool's JSON
// output.
package download

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"subtide/internal/logging"
	"subtide/internal/services"
)

// Config locates the downloader and its ffmpeg dependency.
type Config struct {
	Binary       string
	FFmpegBinary string
	UserAgent    string
	WorkDir      string
	Timeout      time.Duration
}

// Result describes one downloaded audio artifact.
type Result struct {
	AudioPath       string
	Title           string
	Description     string
	ThumbnailURL    string
	DurationSeconds int
}

// Downloader fetches audio for a source URL.
type Downloader struct {
	cfg    Config
	logger *slog.Logger
	// runCommand is swapped in tests.
	runCommand func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// New builds a downloader. A nil logger disables logging.
func New(cfg Config, logger *slog.Logger) *Downloader {
	return &Downloader{
		cfg:    cfg,
		logger: logging.WithComponent(logger, "downloader"),
		runCommand: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
			return cmd.Output()
		},
	}
}

// metadata mirrors the yt-dlp JSON fields we keep.
type metadata struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Thumbnail   string  `json:"thumbnail"`
	Duration    float64 `json:"duration"`
}

// FetchAudio downloads the best audio-only stream for the URL, extracts it
// to WAV under the work directory, and returns the local path plus
// metadata. Certificate checks are relaxed and a browser User-Agent is sent
// because some source hosts reject bare clients.
func (d *Downloader) FetchAudio(ctx context.Context, sourceURL, id string) (*Result, error) {
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	outputTemplate := filepath.Join(d.cfg.WorkDir, id+".%(ext)s")
	args := []string{
		"-f", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "wav",
		"--no-playlist",
		"--no-check-certificates",
		"--no-simulate",
		"--dump-json",
		"-o", outputTemplate,
	}
	if d.cfg.FFmpegBinary != "" {
		args = append(args, "--ffmpeg-location", d.cfg.FFmpegBinary)
	}
	if d.cfg.UserAgent != "" {
		args = append(args, "--user-agent", d.cfg.UserAgent)
	}
	args = append(args, sourceURL)

	d.logger.Info("downloading audio", logging.String("url", sourceURL), logging.String("id", id))
	output, err := d.runCommand(ctx, d.cfg.Binary, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "downloader", "fetch", "yt-dlp failed", err)
	}

	var meta metadata
	if err := json.Unmarshal(firstJSONLine(output), &meta); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "downloader", "fetch", "parse metadata", err)
	}

	audioPath := filepath.Join(d.cfg.WorkDir, id+".wav")
	if _, err := os.Stat(audioPath); err != nil {
		return nil, services.Wrap(services.ErrNotFound, "downloader", "fetch",
			fmt.Sprintf("audio file %s missing after download", audioPath), err)
	}

	return &Result{
		AudioPath:       audioPath,
		Title:           meta.Title,
		Description:     meta.Description,
		ThumbnailURL:    meta.Thumbnail,
		DurationSeconds: int(meta.Duration),
	}, nil
}

// firstJSONLine isolates the metadata document from any progress noise the
// tool prints around it.
func firstJSONLine(output []byte) []byte {
	for _, line := range strings.Split(string(output), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "{") {
			return []byte(trimmed)
		}
	}
	return output
}
