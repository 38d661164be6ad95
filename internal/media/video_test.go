package media_test

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"subtide/internal/media"
)

func TestVideoDocumentRoundTrip(t *testing.T) {
	original := media.Video{
		ID:              "vid-1",
		Title:           "Talk",
		Description:     "A recorded talk",
		SourceURL:       "https://youtube.com/watch?v=abc123",
		ThumbnailURL:    "https://i.ytimg.com/vi/abc123/default.jpg",
		UploadDate:      time.Date(2026, time.March, 14, 9, 26, 53, 0, time.UTC),
		DurationSeconds: 213,
		Progress:        100,
		Status:          media.StatusCompleted,
		Subtitles: []media.Subtitle{
			{ID: "0", StartTime: 0.5, EndTime: 2.25, Text: "hello"},
			{ID: "1", StartTime: 2.25, EndTime: 4.0, Text: "world"},
		},
		DetectedLanguage: "en",
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal video: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal document: %v", err)
	}
	if got := doc["uploadDate"]; got != "2026-03-14T09:26:53Z" {
		t.Fatalf("uploadDate = %v, want ISO-8601", got)
	}

	var restored media.Video
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unmarshal video: %v", err)
	}
	if !reflect.DeepEqual(original, restored) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", restored, original)
	}
}

func TestVideoUnmarshalRejectsUnknownStatus(t *testing.T) {
	payload := `{"id":"x","uploadDate":"2026-01-02T03:04:05Z","status":"paused"}`
	var v media.Video
	if err := json.Unmarshal([]byte(payload), &v); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestSubtitleTranslatedDerivesIDAndKeepsTiming(t *testing.T) {
	sub := media.Subtitle{ID: "3", StartTime: 1.5, EndTime: 2.5, Text: "hola"}
	out := sub.Translated("  hello ")
	if out.ID != "3_translated" {
		t.Fatalf("id = %q", out.ID)
	}
	if out.StartTime != sub.StartTime || out.EndTime != sub.EndTime {
		t.Fatalf("timing changed: %+v", out)
	}
	if out.Text != "hello" {
		t.Fatalf("text = %q", out.Text)
	}
}

func TestValidTimeline(t *testing.T) {
	tests := []struct {
		name string
		subs []media.Subtitle
		want bool
	}{
		{"empty", nil, true},
		{"ordered", []media.Subtitle{{StartTime: 0, EndTime: 1}, {StartTime: 1, EndTime: 2}}, true},
		{"equal starts", []media.Subtitle{{StartTime: 1, EndTime: 2}, {StartTime: 1, EndTime: 3}}, true},
		{"out of order", []media.Subtitle{{StartTime: 2, EndTime: 3}, {StartTime: 1, EndTime: 2}}, false},
		{"inverted span", []media.Subtitle{{StartTime: 2, EndTime: 1}}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := media.ValidTimeline(tc.subs); got != tc.want {
				t.Fatalf("ValidTimeline = %v, want %v", got, tc.want)
			}
		})
	}
}
