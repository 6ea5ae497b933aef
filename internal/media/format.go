// Package media identifies audio formats and carries uploaded payloads.
//
// The format tag of an upload always comes from its filename extension.
// MIME types reported by browsers and multipart encoders are frequently
// "application/octet-stream" for speech codecs such as AMR, so they are
// never used to decide the tag.
package media

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is a lower-case audio format tag such as "mp3" or "amr".
type Format string

// Recognized format tags.
const (
	AMR  Format = "amr"
	MP3  Format = "mp3"
	WAV  Format = "wav"
	FLAC Format = "flac"
	OGG  Format = "ogg"
	AAC  Format = "aac"
	M4A  Format = "m4a"
	WMA  Format = "wma"
)

// knownFormats lists every tag this module knows how to hand to FFmpeg,
// in the order they are presented to users.
var knownFormats = []Format{AMR, MP3, WAV, FLAC, OGG, AAC, M4A, WMA}

// mimeTypes maps a format tag to the MIME type sent with downloads.
var mimeTypes = map[Format]string{
	AMR:  "audio/amr",
	MP3:  "audio/mpeg",
	WAV:  "audio/wav",
	FLAC: "audio/flac",
	OGG:  "audio/ogg",
	AAC:  "audio/aac",
	M4A:  "audio/mp4",
	WMA:  "audio/x-ms-wma",
}

// String returns the tag.
func (f Format) String() string {
	return string(f)
}

// Ext returns the filename extension for the format, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// MIME returns the audio/<subtype> MIME type for the format.
// Unknown tags fall back to audio/<tag>.
func (f Format) MIME() string {
	if m, ok := mimeTypes[f]; ok {
		return m
	}
	return "audio/" + string(f)
}

// Known reports whether f is one of the recognized tags.
func (f Format) Known() bool {
	for _, k := range knownFormats {
		if k == f {
			return true
		}
	}
	return false
}

// normalize lower-cases s and strips a leading dot.
func normalize(s string) Format {
	return Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
}

// FormatSet is an immutable set of accepted format tags.
// Build it once at startup; it is safe for concurrent use.
type FormatSet struct {
	tags []Format
}

// DefaultFormats returns the full set of recognized formats.
func DefaultFormats() FormatSet {
	return FormatSet{tags: append([]Format(nil), knownFormats...)}
}

// NewFormatSet builds a set from tags (case-insensitive, leading dot optional).
// Every tag must be recognized. Duplicates are ignored. An empty list yields
// the default set.
func NewFormatSet(tags ...string) (FormatSet, error) {
	if len(tags) == 0 {
		return DefaultFormats(), nil
	}

	var set FormatSet
	for _, t := range tags {
		f := normalize(t)
		if !f.Known() {
			return FormatSet{}, fmt.Errorf("%w: %q (known: %s)", ErrUnsupportedFormat, t, DefaultFormats())
		}
		if !set.Contains(f) {
			set.tags = append(set.tags, f)
		}
	}
	return set, nil
}

// Contains reports whether f is in the set.
func (s FormatSet) Contains(f Format) bool {
	for _, t := range s.tags {
		if t == f {
			return true
		}
	}
	return false
}

// List returns a copy of the tags in the set.
func (s FormatSet) List() []Format {
	return append([]Format(nil), s.tags...)
}

// String returns a comma-separated list for error messages.
func (s FormatSet) String() string {
	parts := make([]string, len(s.tags))
	for i, t := range s.tags {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

// Parse validates a bare format tag such as a requested target format.
func (s FormatSet) Parse(tag string) (Format, error) {
	f := normalize(tag)
	if f == "" {
		return "", fmt.Errorf("%w: empty format (supported: %s)", ErrUnsupportedFormat, s)
	}
	if !s.Contains(f) {
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, string(f), s)
	}
	return f, nil
}

// Validate extracts the format tag from filename and checks it against the set.
// declaredMIME is accepted for the caller's logging but does not influence
// the result.
func (s FormatSet) Validate(filename, declaredMIME string) (Format, error) {
	ext := filepath.Ext(filename)
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension (supported: %s)", ErrUnsupportedFormat, filename, s)
	}

	f := normalize(ext)
	if !s.Contains(f) {
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, string(f), s)
	}
	return f, nil
}
