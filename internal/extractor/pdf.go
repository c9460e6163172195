package extractor

import (
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/soares-ari/helpdesk-ai/internal/apperr"
)

// PDFExtractor extracts text from PDF files page by page.
type PDFExtractor struct{}

// NewPDFExtractor creates a PDF text extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

// Supports reports whether the media type is PDF.
func (e *PDFExtractor) Supports(mediaType string) bool {
	return mediaType == "application/pdf"
}

// Extract concatenates the text of every page, separated by blank lines so
// page boundaries survive as paragraph breaks for the chunker.
func (e *PDFExtractor) Extract(data []byte) (string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", apperr.Wrap(apperr.KindExtractionFailure, "failed to open PDF", err)
	}
	defer doc.Close()

	var b strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", apperr.Newf(apperr.KindExtractionFailure, "failed to extract page %d: %v", i+1, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}

	return b.String(), nil
}
