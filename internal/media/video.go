package media

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a video record. A record is terminal
// once its status is completed or error.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusProcessing:
		return StatusProcessing, true
	case StatusCompleted:
		return StatusCompleted, true
	case StatusError:
		return StatusError, true
	}
	return "", false
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Video is the persisted record for one processing job. It is owned by the
// worker for the duration of the job and visible to everyone else only
// through the store.
type Video struct {
	ID               string
	Title            string
	Description      string
	SourceURL        string
	ThumbnailURL     string
	UploadDate       time.Time
	DurationSeconds  int
	Progress         int
	Status           Status
	Subtitles        []Subtitle
	DetectedLanguage string
}

// videoDoc is the JSON document shape stored for a video. UploadDate is kept
// as an ISO-8601 string so documents stay readable outside this process.
type videoDoc struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	SourceURL        string     `json:"sourceUrl"`
	ThumbnailURL     string     `json:"thumbnailUrl"`
	UploadDate       string     `json:"uploadDate"`
	Duration         int        `json:"duration"`
	Progress         int        `json:"progress"`
	Status           string     `json:"status"`
	Subtitles        []Subtitle `json:"subtitles,omitempty"`
	DetectedLanguage string     `json:"detectedLanguage,omitempty"`
}

// MarshalJSON encodes the video as its document form.
func (v Video) MarshalJSON() ([]byte, error) {
	doc := videoDoc{
		ID:               v.ID,
		Title:            v.Title,
		Description:      v.Description,
		SourceURL:        v.SourceURL,
		ThumbnailURL:     v.ThumbnailURL,
		UploadDate:       v.UploadDate.UTC().Format(time.RFC3339),
		Duration:         v.DurationSeconds,
		Progress:         v.Progress,
		Status:           string(v.Status),
		Subtitles:        v.Subtitles,
		DetectedLanguage: v.DetectedLanguage,
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes a video from its document form.
func (v *Video) UnmarshalJSON(data []byte) error {
	var doc videoDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	uploaded, err := time.Parse(time.RFC3339, doc.UploadDate)
	if err != nil {
		return fmt.Errorf("parse uploadDate: %w", err)
	}
	status, ok := ParseStatus(doc.Status)
	if !ok {
		return fmt.Errorf("unknown video status %q", doc.Status)
	}
	*v = Video{
		ID:               doc.ID,
		Title:            doc.Title,
		Description:      doc.Description,
		SourceURL:        doc.SourceURL,
		ThumbnailURL:     doc.ThumbnailURL,
		UploadDate:       uploaded,
		DurationSeconds:  doc.Duration,
		Progress:         doc.Progress,
		Status:           status,
		Subtitles:        doc.Subtitles,
		DetectedLanguage: doc.DetectedLanguage,
	}
	return nil
}

// Translation is the stored record for one translated subtitle list, keyed
// by (video id, language code).
type Translation struct {
	Language  string     `json:"language"`
	Subtitles []Subtitle `json:"subtitles"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
