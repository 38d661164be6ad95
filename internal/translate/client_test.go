package translate_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"subtide/internal/media"
	"subtide/internal/services"
	"subtide/internal/translate"
)

func newServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *translate.Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := translate.NewClient(translate.Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Timeout: 5 * time.Second,
	}, nil)
	return server, client
}

func respondWith(t *testing.T, w http.ResponseWriter, translations []string) {
	t.Helper()
	entries := make([]map[string]string, len(translations))
	for i, text := range translations {
		entries[i] = map[string]string{"translatedText": text}
	}
	payload := map[string]any{"data": map[string]any{"translations": entries}}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Fatal(err)
	}
}

func TestTranslateSubtitlesPreservesTimingAndDerivesIDs(t *testing.T) {
	subtitles := []media.Subtitle{
		{ID: "0", StartTime: 0.0, EndTime: 1.5, Text: "hello"},
		{ID: "1", StartTime: 1.5, EndTime: 3.0, Text: "world"},
		{ID: "2", StartTime: 3.0, EndTime: 4.5, Text: "again"},
	}

	_, client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.Form["q"]; len(got) != 3 || got[0] != "hello" {
			t.Fatalf("unexpected q params %v", got)
		}
		if r.Form.Get("target") != "ko" {
			t.Fatalf("target = %q", r.Form.Get("target"))
		}
		respondWith(t, w, []string{"안녕", "세계", "다시"})
	})

	out, err := client.TranslateSubtitles(context.Background(), subtitles, "ko")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if len(out) != len(subtitles) {
		t.Fatalf("output length = %d", len(out))
	}
	for i, sub := range out {
		original := subtitles[i]
		if sub.ID != original.ID+"_translated" {
			t.Fatalf("id = %q", sub.ID)
		}
		if sub.StartTime != original.StartTime || sub.EndTime != original.EndTime {
			t.Fatalf("timing changed for %d: %+v", i, sub)
		}
	}
	if out[0].Text != "안녕" {
		t.Fatalf("text = %q", out[0].Text)
	}
	// Originals untouched.
	if subtitles[0].Text != "hello" {
		t.Fatalf("input mutated: %+v", subtitles[0])
	}
}

func TestLengthMismatchFailsAsUnit(t *testing.T) {
	_, client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		respondWith(t, w, []string{"only one"})
	})

	subtitles := []media.Subtitle{
		{ID: "0", Text: "a"},
		{ID: "1", Text: "b"},
	}
	_, err := client.TranslateSubtitles(context.Background(), subtitles, "fr")
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestNonSuccessStatusFails(t *testing.T) {
	_, client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	})

	_, err := client.TranslateTexts(context.Background(), []string{"a"}, "de")
	if !errors.Is(err, services.ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestMissingAPIKeyIsConfigurationError(t *testing.T) {
	client := translate.NewClient(translate.Config{BaseURL: "http://localhost:0"}, nil)
	_, err := client.TranslateTexts(context.Background(), []string{"a"}, "de")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want ErrConfiguration", err)
	}
}
