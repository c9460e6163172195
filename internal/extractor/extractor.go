// Package extractor turns uploaded files into plain text for chunking.
package extractor

import (
	"strings"

	"github.com/soares-ari/helpdesk-ai/internal/apperr"
)

// TextExtractor extracts plain text from a file's raw bytes.
type TextExtractor interface {
	// Extract returns the document's text. Extraction failures are
	// reported as ExtractionFailure errors.
	Extract(data []byte) (string, error)
	// Supports reports whether this extractor handles the media type.
	Supports(mediaType string) bool
}

// Registry routes extraction by media type.
type Registry struct {
	extractors []TextExtractor
}

// NewRegistry creates a registry with the default extractors.
func NewRegistry() *Registry {
	return &Registry{
		extractors: []TextExtractor{
			NewPDFExtractor(),
			NewPlainTextExtractor(),
		},
	}
}

// Register adds an extractor. Later registrations take precedence.
func (r *Registry) Register(e TextExtractor) {
	r.extractors = append([]TextExtractor{e}, r.extractors...)
}

// Extract finds an extractor for the media type and runs it.
func (r *Registry) Extract(data []byte, mediaType string) (string, error) {
	mt := normalizeMediaType(mediaType)
	for _, e := range r.extractors {
		if e.Supports(mt) {
			return e.Extract(data)
		}
	}
	return "", apperr.Newf(apperr.KindExtractionFailure, "unsupported media type: %s", mediaType)
}

// Supports reports whether any registered extractor handles the media type.
func (r *Registry) Supports(mediaType string) bool {
	mt := normalizeMediaType(mediaType)
	for _, e := range r.extractors {
		if e.Supports(mt) {
			return true
		}
	}
	return false
}

// normalizeMediaType strips parameters like "; charset=utf-8" and lowercases.
func normalizeMediaType(mediaType string) string {
	if idx := strings.Index(mediaType, ";"); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
