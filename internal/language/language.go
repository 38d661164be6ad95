// Package language maps ISO language codes reported by the speech model and
// requested by translation callers onto display names.
package language

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type entry struct {
	code    string // ISO 639-1 (2-letter), as whisper reports
	display string
}

var languages = []entry{
	{"en", "English"},
	{"es", "Spanish"},
	{"fr", "French"},
	{"de", "German"},
	{"it", "Italian"},
	{"pt", "Portuguese"},
	{"ja", "Japanese"},
	{"ko", "Korean"},
	{"zh", "Chinese"},
	{"ru", "Russian"},
	{"ar", "Arabic"},
	{"hi", "Hindi"},
	{"nl", "Dutch"},
	{"pl", "Polish"},
	{"sv", "Swedish"},
	{"da", "Danish"},
	{"no", "Norwegian"},
	{"fi", "Finnish"},
	{"tr", "Turkish"},
	{"vi", "Vietnamese"},
	{"th", "Thai"},
	{"id", "Indonesian"},
	{"uk", "Ukrainian"},
	{"cs", "Czech"},
	{"el", "Greek"},
	{"he", "Hebrew"},
}

var byCode = func() map[string]entry {
	m := make(map[string]entry, len(languages))
	for _, e := range languages {
		m[e.code] = e
	}
	return m
}()

var titleCaser = cases.Title(language.English)

// Normalize lowercases and trims a language code, returning "" for blank input.
func Normalize(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// Known reports whether the code maps to a language in the table.
func Known(code string) bool {
	_, ok := byCode[Normalize(code)]
	return ok
}

// Display returns a human-readable name for a language code. Unknown codes
// fall back to a title-cased rendering of the code itself so logs stay
// readable for languages outside the table.
func Display(code string) string {
	normalized := Normalize(code)
	if normalized == "" {
		return "Unknown"
	}
	if e, ok := byCode[normalized]; ok {
		return e.display
	}
	if tag, err := language.Parse(normalized); err == nil {
		if base, confidence := tag.Base(); confidence != language.No {
			return titleCaser.String(base.String())
		}
	}
	return titleCaser.String(normalized)
}
