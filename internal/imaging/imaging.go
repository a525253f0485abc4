// Package imaging validates raw screenshot payloads before analysis.
package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
)

// Size bounds for a decoded screenshot.
const (
	MinImageBytes = 1024
	MaxImageBytes = 15 * 1024 * 1024
)

var (
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47}
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
)

// ProcessedImage is a validated base64 payload with its sniffed media type.
// Immutable once produced.
type ProcessedImage struct {
	Base64Data string `json:"base64_data"`
	MediaType  string `json:"media_type"`
	SizeBytes  int    `json:"size_bytes"`
}

// ValidationError describes a rejected payload. It is surfaced to the caller
// and never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid image: " + e.Reason
}

// Prepare strips any data-URL prefix, decodes the payload as standard base64
// and enforces the size bounds. The media type is sniffed from the leading
// bytes; unrecognized content falls back to PNG rather than failing.
func Prepare(imageBase64 string) (*ProcessedImage, error) {
	clean := imageBase64
	if strings.HasPrefix(imageBase64, "data:image") {
		_, rest, found := strings.Cut(imageBase64, ",")
		if !found {
			return nil, &ValidationError{Reason: "invalid data URL format"}
		}
		clean = rest
	}

	raw, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("invalid base64: %v", err)}
	}

	if len(raw) > MaxImageBytes {
		return nil, &ValidationError{Reason: "image too large (max 15MB)"}
	}
	if len(raw) < MinImageBytes {
		return nil, &ValidationError{Reason: "image too small"}
	}

	mediaType := "image/png"
	switch {
	case bytes.HasPrefix(raw, pngMagic):
		mediaType = "image/png"
	case bytes.HasPrefix(raw, jpegMagic):
		mediaType = "image/jpeg"
	}

	return &ProcessedImage{
		Base64Data: clean,
		MediaType:  mediaType,
		SizeBytes:  len(raw),
	}, nil
}
