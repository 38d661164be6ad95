package media

import "strings"

// Subtitle is one timestamped text unit on the final timeline. Times are
// seconds from the start of the video. A subtitle is never mutated after
// creation; translation derives new subtitles instead.
type Subtitle struct {
	ID        string  `json:"id"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Text      string  `json:"text"`
}

// Translated returns a copy of the subtitle carrying the translated text and
// a derived id, preserving the original timing.
func (s Subtitle) Translated(text string) Subtitle {
	return Subtitle{
		ID:        s.ID + "_translated",
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		Text:      strings.TrimSpace(text),
	}
}

// ValidTimeline reports whether the list is ordered by non-decreasing start
// time and every subtitle satisfies startTime <= endTime.
func ValidTimeline(subtitles []Subtitle) bool {
	prev := 0.0
	for _, sub := range subtitles {
		if sub.StartTime > sub.EndTime {
			return false
		}
		if sub.StartTime < prev {
			return false
		}
		prev = sub.StartTime
	}
	return true
}
