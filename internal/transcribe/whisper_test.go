package transcribe

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"subtide/internal/services"
)

func testWhisper(t *testing.T, run func(ctx context.Context, name string, args ...string) ([]byte, error)) *WhisperRecognizer {
	t.Helper()
	rec := NewWhisperRecognizer(WhisperConfig{
		Binary:    "whisper-cli",
		ModelPath: "/models/ggml-medium.bin",
		WorkDir:   t.TempDir(),
	})
	rec.runCommand = run
	return rec
}

func TestDetectLanguageParsesRankedReport(t *testing.T) {
	output := []byte(strings.Join([]string{
		"whisper_init_from_file: loading model",
		"auto-detected language: en (p = 0.912345)",
		"auto-detected language: de (p = 0.051000)",
	}, "\n"))

	var gotArgs []string
	rec := testWhisper(t, func(_ context.Context, _ string, args ...string) ([]byte, error) {
		gotArgs = args
		return output, nil
	})

	scores, err := rec.DetectLanguage(context.Background(), make([]float64, 16000), 16000)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("scores = %+v", scores)
	}
	if scores[0].Code != "en" || scores[0].Probability < 0.9 {
		t.Fatalf("top score = %+v", scores[0])
	}
	if !containsArg(gotArgs, "--detect-language") {
		t.Fatalf("missing detect flag in %v", gotArgs)
	}
}

func TestDetectLanguageWithoutReportFails(t *testing.T) {
	rec := testWhisper(t, func(context.Context, string, ...string) ([]byte, error) {
		return []byte("nothing useful"), nil
	})
	_, err := rec.DetectLanguage(context.Background(), make([]float64, 16000), 16000)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want ErrExternalTool", err)
	}
}

func TestTranscribeParsesOffsets(t *testing.T) {
	payload := `{"transcription":[
		{"offsets":{"from":0,"to":1500},"text":" hello"},
		{"offsets":{"from":1500,"to":3000},"text":" there"}
	]}`

	rec := testWhisper(t, func(_ context.Context, _ string, args ...string) ([]byte, error) {
		prefix := argValue(args, "-of")
		if prefix == "" {
			t.Fatal("missing -of argument")
		}
		if err := os.WriteFile(prefix+".json", []byte(payload), 0o644); err != nil {
			t.Fatal(err)
		}
		return nil, nil
	})

	segments, err := rec.Transcribe(context.Background(), make([]float64, 16000), 16000, Options{
		Language: "en", BeamSize: 7, Temperature: 0.1, ConditionOnPrevious: true,
	})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("segments = %+v", segments)
	}
	if segments[0].Start != 0 || segments[0].End != 1.5 {
		t.Fatalf("segment 0 = %+v", segments[0])
	}
	if segments[1].Start != 1.5 || segments[1].End != 3.0 {
		t.Fatalf("segment 1 = %+v", segments[1])
	}
}

func TestTranscribeCommandFailureTagged(t *testing.T) {
	rec := testWhisper(t, func(context.Context, string, ...string) ([]byte, error) {
		return []byte("boom"), errors.New("exit status 1")
	})
	_, err := rec.Transcribe(context.Background(), make([]float64, 16000), 16000, Options{BeamSize: 7})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("err = %v, want ErrExternalTool", err)
	}
}

func TestTranscribeFlagsFollowOptions(t *testing.T) {
	var gotArgs []string
	rec := testWhisper(t, func(_ context.Context, _ string, args ...string) ([]byte, error) {
		gotArgs = args
		prefix := argValue(args, "-of")
		if err := os.WriteFile(prefix+".json", []byte(`{"transcription":[]}`), 0o644); err != nil {
			t.Fatal(err)
		}
		return nil, nil
	})

	_, err := rec.Transcribe(context.Background(), make([]float64, 16000), 16000, Options{
		Language: "ko", BeamSize: 5, Temperature: 0.2, ConditionOnPrevious: false,
	})
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	if argValue(gotArgs, "-l") != "ko" || argValue(gotArgs, "-bs") != "5" {
		t.Fatalf("args = %v", gotArgs)
	}
	if !containsArg(gotArgs, "--no-context") {
		t.Fatalf("expected --no-context in %v", gotArgs)
	}
}

func containsArg(args []string, want string) bool {
	for _, arg := range args {
		if arg == want {
			return true
		}
	}
	return false
}

func argValue(args []string, flag string) string {
	for i, arg := range args {
		if arg == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
