// Package media defines the subtitle and video records shared across the
// pipeline and their persisted document forms.
package media
