package download

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"subtide/internal/services"
)

const sampleMetadata = `{"title":"Talk","description":"A talk.","thumbnail":"https://img.example/t.jpg","duration":93.4}`

func testDownloader(t *testing.T, run func(ctx context.Context, name string, args ...string) ([]byte, error)) (*Downloader, string) {
	t.Helper()
	workDir := t.TempDir()
	d := New(Config{
		Binary:       "yt-dlp",
		FFmpegBinary: "ffmpeg",
		UserAgent:    "Mozilla/5.0",
		WorkDir:      workDir,
	}, nil)
	d.runCommand = run
	return d, workDir
}

func TestFetchAudioReturnsPathAndMetadata(t *testing.T) {
	var gotArgs []string
	var workDir string
	d, workDir := testDownloader(t, func(_ context.Context, _ string, args ...string) ([]byte, error) {
		gotArgs = args
		path := filepath.Join(workDir, "vid-1.wav")
		if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
			t.Fatal(err)
		}
		return []byte("[download] noise\n" + sampleMetadata + "\n"), nil
	})

	result, err := d.FetchAudio(context.Background(), "https://example.com/watch?v=1", "vid-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if result.AudioPath != filepath.Join(workDir, "vid-1.wav") {
		t.Fatalf("audio path = %q", result.AudioPath)
	}
	if result.Title != "Talk" || result.DurationSeconds != 93 {
		t.Fatalf("metadata = %+v", result)
	}
	if !hasArg(gotArgs, "--extract-audio") || !hasArg(gotArgs, "--no-playlist") {
		t.Fatalf("args = %v", gotArgs)
	}
	if gotArgs[len(gotArgs)-1] != "https://example.com/watch?v=1" {
		t.Fatalf("url not last arg: %v", gotArgs)
	}
}

func TestFetchAudioToolFailureTagged(t *testing.T) {
	d, _ := testDownloader(t, func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	})
	_, err := d.FetchAudio(context.Background(), "https://example.com/x", "vid-2")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want ErrExternalTool", err)
	}
}

func TestFetchAudioMissingFileIsNotFound(t *testing.T) {
	d, _ := testDownloader(t, func(context.Context, string, ...string) ([]byte, error) {
		return []byte(sampleMetadata), nil
	})
	_, err := d.FetchAudio(context.Background(), "https://example.com/x", "vid-3")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func hasArg(args []string, want string) bool {
	for _, arg := range args {
		if arg == want {
			return true
		}
	}
	return false
}
