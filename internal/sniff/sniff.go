// Package sniff detects the actual content type of uploaded bytes.
package sniff

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const octetStream = "application/octet-stream"

// Detect returns the MIME type detected from data.
// It reports false when detection is inconclusive.
func Detect(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}

	detected := mimetype.Detect(data)
	if detected == nil || detected.Is(octetStream) {
		return "", false
	}

	return normalize(detected.String()), true
}

// Effective returns the detected type of data, falling back to the declared type
// when detection is inconclusive.
func Effective(data []byte, declared string) string {
	if detected, ok := Detect(data); ok {
		return detected
	}
	return normalize(declared)
}

// Sniffer adapts Effective to the upload service.
type Sniffer struct{}

// Effective implements the upload service's sniffer.
func (Sniffer) Effective(data []byte, declared string) string {
	return Effective(data, declared)
}

// normalize strips parameters and lower-cases a media type.
func normalize(value string) string {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return ""
	}

	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return strings.ToLower(clean)
	}

	return strings.ToLower(mediaType)
}
