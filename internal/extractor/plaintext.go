package extractor

import (
	"unicode/utf8"

	"github.com/soares-ari/helpdesk-ai/internal/apperr"
)

// PlainTextExtractor handles text-native formats that need no conversion.
type PlainTextExtractor struct{}

// NewPlainTextExtractor creates an extractor for plain text and markdown.
func NewPlainTextExtractor() *PlainTextExtractor {
	return &PlainTextExtractor{}
}

// Supports reports whether the media type is a plain text format.
func (e *PlainTextExtractor) Supports(mediaType string) bool {
	switch mediaType {
	case "text/plain", "text/markdown":
		return true
	}
	return false
}

// Extract validates the bytes are UTF-8 and returns them as a string.
func (e *PlainTextExtractor) Extract(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", apperr.New(apperr.KindExtractionFailure, "file is not valid UTF-8 text")
	}
	return string(data), nil
}
