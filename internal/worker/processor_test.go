package worker_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"subtide/internal/audio"
	"subtide/internal/download"
	"subtide/internal/media"
	"subtide/internal/notify"
	"subtide/internal/transcribe"
	"subtide/internal/worker"
)

type fakeDownloader struct {
	dir  string
	fail bool
}

func (f *fakeDownloader) FetchAudio(_ context.Context, sourceURL, id string) (*download.Result, error) {
	if f.fail {
		return nil, errors.New("download refused")
	}
	path := filepath.Join(f.dir, id+".wav")
	file, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	buf := &audio.Buffer{Samples: make([]float64, 16000), SampleRate: 16000}
	if err := audio.WriteWAV(file, buf); err != nil {
		return nil, err
	}
	return &download.Result{
		AudioPath:       path,
		Title:           "Fetched",
		Description:     "desc",
		ThumbnailURL:    "https://img.example/x.jpg",
		DurationSeconds: 1,
	}, nil
}

type fakeTranscriber struct {
	noSubtitles bool
	fail        bool
}

func (f *fakeTranscriber) Transcribe(context.Context, *audio.Buffer) (*transcribe.Result, error) {
	if f.fail {
		return nil, errors.New("model crashed")
	}
	if f.noSubtitles {
		return nil, transcribe.ErrNoSubtitles
	}
	return &transcribe.Result{
		Subtitles: []media.Subtitle{{ID: "0", StartTime: 0, EndTime: 1, Text: "hi"}},
		Language:  "en",
	}, nil
}

type fakeTranslator struct {
	fail bool
}

func (f *fakeTranslator) TranslateSubtitles(_ context.Context, subtitles []media.Subtitle, _ string) ([]media.Subtitle, error) {
	if f.fail {
		return nil, errors.New("quota")
	}
	out := make([]media.Subtitle, len(subtitles))
	for i, sub := range subtitles {
		out[i] = sub.Translated("x-" + sub.Text)
	}
	return out, nil
}

type memoryRecorder struct {
	mu           sync.Mutex
	videos       map[string]media.Video
	translations map[string]media.Translation
}

func newMemoryRecorder() *memoryRecorder {
	return &memoryRecorder{
		videos:       make(map[string]media.Video),
		translations: make(map[string]media.Translation),
	}
}

func (m *memoryRecorder) SaveVideo(_ context.Context, video *media.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videos[video.ID] = *video
	return nil
}

func (m *memoryRecorder) GetVideo(_ context.Context, id string) (*media.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	video, ok := m.videos[id]
	if !ok {
		return nil, nil
	}
	return &video, nil
}

func (m *memoryRecorder) SaveTranslation(_ context.Context, videoID string, translation *media.Translation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.translations[videoID+"/"+translation.Language] = *translation
	return nil
}

type captureNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (c *captureNotifier) Broadcast(event notify.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *captureNotifier) progressSteps() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	var steps []int
	for _, event := range c.events {
		if event.Type == notify.TypeProgress {
			steps = append(steps, event.Progress)
		}
	}
	return steps
}

func newProcessor(t *testing.T, downloader *fakeDownloader, transcriber *fakeTranscriber, translator *fakeTranslator) (*worker.Processor, *memoryRecorder, *captureNotifier) {
	t.Helper()
	if downloader == nil {
		downloader = &fakeDownloader{dir: t.TempDir()}
	}
	if transcriber == nil {
		transcriber = &fakeTranscriber{}
	}
	if translator == nil {
		translator = &fakeTranslator{}
	}
	recorder := newMemoryRecorder()
	notifier := &captureNotifier{}
	processor := worker.NewProcessor(downloader, transcriber, translator, recorder, notifier, nil)
	return processor, recorder, notifier
}

func TestProcessHappyPath(t *testing.T) {
	downloader := &fakeDownloader{dir: t.TempDir()}
	processor, recorder, notifier := newProcessor(t, downloader, nil, nil)

	job := worker.Job{VideoID: "vid-1", SourceURL: "https://example.com/1", TargetLanguages: []string{"ko"}}
	if err := processor.Process(context.Background(), job); err != nil {
		t.Fatalf("process: %v", err)
	}

	video, _ := recorder.GetVideo(context.Background(), "vid-1")
	if video == nil {
		t.Fatal("record missing")
	}
	if video.Status != media.StatusCompleted || video.Progress != 100 {
		t.Fatalf("record = %+v", video)
	}
	if video.DetectedLanguage != "en" || len(video.Subtitles) != 1 {
		t.Fatalf("record = %+v", video)
	}

	steps := notifier.progressSteps()
	if len(steps) != 3 || steps[0] != 0 || steps[1] != 50 || steps[2] != 100 {
		t.Fatalf("progress checkpoints = %v", steps)
	}

	translation, ok := recorder.translations["vid-1/ko"]
	if !ok {
		t.Fatal("translation missing")
	}
	if translation.Subtitles[0].ID != "0_translated" {
		t.Fatalf("translation = %+v", translation)
	}

	// Temp audio cleaned up.
	if _, err := os.Stat(filepath.Join(downloader.dir, "vid-1.wav")); !os.IsNotExist(err) {
		t.Fatalf("temp audio still present: %v", err)
	}
}

func TestDownloadFailureLeavesNoRecord(t *testing.T) {
	processor, recorder, _ := newProcessor(t, &fakeDownloader{fail: true}, nil, nil)

	job := worker.Job{VideoID: "vid-2", SourceURL: "https://example.com/2"}
	if err := processor.Process(context.Background(), job); err == nil {
		t.Fatal("expected error")
	}
	video, _ := recorder.GetVideo(context.Background(), "vid-2")
	if video != nil {
		t.Fatalf("unexpected record %+v", video)
	}
}

func TestTranscribeFailureMarksRecordErrored(t *testing.T) {
	processor, recorder, _ := newProcessor(t, nil, &fakeTranscriber{fail: true}, nil)

	job := worker.Job{VideoID: "vid-3", SourceURL: "https://example.com/3"}
	if err := processor.Process(context.Background(), job); err == nil {
		t.Fatal("expected error")
	}
	video, _ := recorder.GetVideo(context.Background(), "vid-3")
	if video == nil {
		t.Fatal("record missing")
	}
	if video.Status != media.StatusError {
		t.Fatalf("status = %q", video.Status)
	}
}

func TestNoSubtitlesMarksRecordErrored(t *testing.T) {
	processor, recorder, notifier := newProcessor(t, nil, &fakeTranscriber{noSubtitles: true}, nil)

	job := worker.Job{VideoID: "vid-4", SourceURL: "https://example.com/4"}
	if err := processor.Process(context.Background(), job); err == nil {
		t.Fatal("expected error")
	}
	video, _ := recorder.GetVideo(context.Background(), "vid-4")
	if video == nil || video.Status != media.StatusError || video.Progress != 100 {
		t.Fatalf("record = %+v", video)
	}
	steps := notifier.progressSteps()
	if steps[len(steps)-1] != 100 {
		t.Fatalf("final checkpoint = %v", steps)
	}
}

func TestTranslationFailureKeepsCompletedRecord(t *testing.T) {
	processor, recorder, _ := newProcessor(t, nil, nil, &fakeTranslator{fail: true})

	job := worker.Job{VideoID: "vid-5", SourceURL: "https://example.com/5", TargetLanguages: []string{"de"}}
	if err := processor.Process(context.Background(), job); err != nil {
		t.Fatalf("process: %v", err)
	}
	video, _ := recorder.GetVideo(context.Background(), "vid-5")
	if video.Status != media.StatusCompleted {
		t.Fatalf("status = %q", video.Status)
	}
	if _, ok := recorder.translations["vid-5/de"]; ok {
		t.Fatal("partial translation persisted")
	}
}

func TestPoolProcessesSubmittedJobs(t *testing.T) {
	downloader := &fakeDownloader{dir: t.TempDir()}
	processor, recorder, _ := newProcessor(t, downloader, nil, nil)
	pool := worker.NewPool(processor, 2, 4, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)

	id, err := pool.Submit("https://example.com/queued", nil)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if id == "" {
		t.Fatal("empty id")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		video, _ := recorder.GetVideo(context.Background(), id)
		if video != nil && video.Status.Terminal() {
			if video.Status != media.StatusCompleted {
				t.Fatalf("status = %q", video.Status)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job did not finish")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPoolRejectsWhenQueueFull(t *testing.T) {
	processor, _, _ := newProcessor(t, &fakeDownloader{fail: true}, nil, nil)
	pool := worker.NewPool(processor, 1, 1, nil)
	// Not started: the single queue slot fills and the next submit fails.
	if _, err := pool.Submit("https://example.com/a", nil); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if _, err := pool.Submit("https://example.com/b", nil); err == nil {
		t.Fatal("expected queue-full error")
	}
}
