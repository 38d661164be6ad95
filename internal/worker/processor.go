// Package worker runs the processing pipeline: fetch audio, transcribe it
// into timestamped subtitles, persist the record, and translate on request.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"subtide/internal/audio"
	"subtide/internal/download"
	"subtide/internal/logging"
	"subtide/internal/media"
	"subtide/internal/notify"
	"subtide/internal/services"
	"subtide/internal/transcribe"
)

// Downloader fetches source audio and metadata.
type Downloader interface {
	FetchAudio(ctx context.Context, sourceURL, id string) (*download.Result, error)
}

// Transcriber turns a waveform into timestamped subtitles.
type Transcriber interface {
	Transcribe(ctx context.Context, buf *audio.Buffer) (*transcribe.Result, error)
}

// Translator produces a translated copy of a subtitle list.
type Translator interface {
	TranslateSubtitles(ctx context.Context, subtitles []media.Subtitle, targetLanguage string) ([]media.Subtitle, error)
}

// Recorder persists video and translation records.
type Recorder interface {
	SaveVideo(ctx context.Context, video *media.Video) error
	GetVideo(ctx context.Context, id string) (*media.Video, error)
	SaveTranslation(ctx context.Context, videoID string, translation *media.Translation) error
}

// Notifier broadcasts progress to subscribers.
type Notifier interface {
	Broadcast(event notify.Event)
}

// Processor executes one job end to end.
type Processor struct {
	downloader  Downloader
	transcriber Transcriber
	translator  Translator
	recorder    Recorder
	notifier    Notifier
	logger      *slog.Logger
}

// NewProcessor wires the pipeline stages together. A nil logger disables
// logging.
func NewProcessor(downloader Downloader, transcriber Transcriber, translator Translator, recorder Recorder, notifier Notifier, logger *slog.Logger) *Processor {
	return &Processor{
		downloader:  downloader,
		transcriber: transcriber,
		translator:  translator,
		recorder:    recorder,
		notifier:    notifier,
		logger:      logging.WithComponent(logger, "worker"),
	}
}

// Process runs the full pipeline for one job. On failure after the record
// has been created, the record is marked errored; a failure before that
// leaves no record behind.
func (p *Processor) Process(ctx context.Context, job Job) error {
	logger := p.logger.With(logging.String("video_id", job.VideoID))
	logger.Info("job started", logging.String("url", job.SourceURL))

	if err := p.run(ctx, job, logger); err != nil {
		logger.Error("job failed", logging.Error(err))
		p.markErrored(job.VideoID, logger)
		return err
	}
	logger.Info("job completed")
	return nil
}

func (p *Processor) run(ctx context.Context, job Job, logger *slog.Logger) error {
	fetched, err := p.downloader.FetchAudio(ctx, job.SourceURL, job.VideoID)
	if err != nil {
		return fmt.Errorf("fetch audio: %w", err)
	}
	defer func() {
		if removeErr := os.Remove(fetched.AudioPath); removeErr != nil && !os.IsNotExist(removeErr) {
			logger.Warn("temp audio not removed", logging.Error(removeErr))
		}
	}()

	video := &media.Video{
		ID:              job.VideoID,
		Title:           fetched.Title,
		Description:     fetched.Description,
		SourceURL:       job.SourceURL,
		ThumbnailURL:    fetched.ThumbnailURL,
		UploadDate:      time.Now().UTC(),
		DurationSeconds: fetched.DurationSeconds,
		Progress:        0,
		Status:          media.StatusProcessing,
	}
	if err := p.checkpoint(ctx, video, 0); err != nil {
		return err
	}

	buf, err := audio.ReadWAV(fetched.AudioPath)
	if err != nil {
		return fmt.Errorf("decode audio: %w", err)
	}
	if err := p.checkpoint(ctx, video, 50); err != nil {
		return err
	}

	result, err := p.transcriber.Transcribe(ctx, buf)
	if errors.Is(err, transcribe.ErrNoSubtitles) {
		video.Status = media.StatusError
		video.Progress = 100
		if saveErr := p.recorder.SaveVideo(ctx, video); saveErr != nil {
			return fmt.Errorf("persist empty result: %w", saveErr)
		}
		p.notifier.Broadcast(notify.ProgressEvent(video.ID, 100))
		return fmt.Errorf("transcription produced no subtitles: %w", err)
	}
	if err != nil {
		return fmt.Errorf("transcribe: %w", err)
	}

	video.Subtitles = result.Subtitles
	video.DetectedLanguage = result.Language
	video.Status = media.StatusCompleted
	if err := p.checkpoint(ctx, video, 100); err != nil {
		return err
	}

	for _, lang := range job.TargetLanguages {
		if err := p.Translate(ctx, video, lang); err != nil {
			// A translation failure leaves the completed record intact.
			logger.Warn("translation failed",
				logging.String("language", lang), logging.Error(err))
		}
	}
	return nil
}

// Translate produces and persists a translated subtitle set for a completed
// record.
func (p *Processor) Translate(ctx context.Context, video *media.Video, targetLanguage string) error {
	if len(video.Subtitles) == 0 {
		return services.Wrap(services.ErrNotFound, "worker", "translate",
			fmt.Sprintf("video %s has no subtitles", video.ID), nil)
	}
	translated, err := p.translator.TranslateSubtitles(ctx, video.Subtitles, targetLanguage)
	if err != nil {
		return fmt.Errorf("translate to %s: %w", targetLanguage, err)
	}
	translation := &media.Translation{
		Language:  targetLanguage,
		Subtitles: translated,
		UpdatedAt: time.Now().UTC(),
	}
	if err := p.recorder.SaveTranslation(ctx, video.ID, translation); err != nil {
		return fmt.Errorf("persist translation: %w", err)
	}
	return nil
}

// checkpoint persists the record at the given progress and broadcasts it.
func (p *Processor) checkpoint(ctx context.Context, video *media.Video, progress int) error {
	video.Progress = progress
	if err := p.recorder.SaveVideo(ctx, video); err != nil {
		return fmt.Errorf("persist record at %d%%: %w", progress, err)
	}
	p.notifier.Broadcast(notify.ProgressEvent(video.ID, progress))
	return nil
}

// markErrored flips an existing record to error status. Jobs that failed
// before creating a record are left without one.
func (p *Processor) markErrored(videoID string, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	video, err := p.recorder.GetVideo(ctx, videoID)
	if err != nil || video == nil {
		return
	}
	if video.Status.Terminal() {
		return
	}
	video.Status = media.StatusError
	if err := p.recorder.SaveVideo(ctx, video); err != nil {
		logger.Warn("error status not persisted", logging.Error(err))
		return
	}
	p.notifier.Broadcast(notify.ProgressEvent(videoID, video.Progress))
}
