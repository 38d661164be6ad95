package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	if got := truncate("short", 40); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("a very long title that keeps going and going", 10); got != "a very ..." {
		t.Fatalf("got %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{0, "-"},
		{59, "0:59"},
		{125, "2:05"},
		{3725, "1:02:05"},
	}
	for _, tc := range cases {
		if got := formatDuration(tc.seconds); got != tc.want {
			t.Fatalf("formatDuration(%d) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}

func TestSubmitCommandTalksToDaemon(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/videos" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatal(err)
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "job-9"})
	}))
	defer server.Close()

	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"submit", "https://example.com/watch?v=9",
		"--translate", "ko,de", "--addr", server.URL})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	if !strings.Contains(out.String(), "job-9") {
		t.Fatalf("output = %q", out.String())
	}
	langs, _ := gotBody["targetLanguages"].([]any)
	if len(langs) != 2 || langs[0] != "ko" {
		t.Fatalf("payload = %v", gotBody)
	}
}

func TestRemoveCommandSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "video not found"})
	}))
	defer server.Close()

	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"remove", "nope", "--addr", server.URL})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "video not found") {
		t.Fatalf("err = %v", err)
	}
}
