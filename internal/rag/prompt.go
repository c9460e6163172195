package rag

import (
	"fmt"
	"strings"

	"github.com/soares-ari/helpdesk-ai/internal/storage"
)

// citationContentLimit caps how much chunk text is echoed back in a citation.
const citationContentLimit = 200

// systemPrompt instructs the model to answer only from the supplied context.
const systemPrompt = `You are a helpful and knowledgeable assistant. Your job is to answer questions
based exclusively on the documents provided as context.

IMPORTANT RULES:
- Always base your answers on the provided documents
- If the information is not in the documents, say you do not have that information
- Cite your sources when possible (e.g. "According to the document...")
- Be clear, concise and direct
- Use professional but accessible language`

// SystemPrompt returns the grounding instructions for the generator.
func SystemPrompt() string {
	return systemPrompt
}

// BuildContextPrompt assembles the user prompt: each retrieved chunk as a
// numbered context block with its relevance score, followed by the question.
func BuildContextPrompt(chunks []storage.RetrievedChunk, userQuestion string) string {
	var b strings.Builder
	b.WriteString("RELEVANT DOCUMENTS:\n\n")

	for i, chunk := range chunks {
		fmt.Fprintf(&b, "[DOCUMENT %d] (Relevance: %.2f)\n", i+1, chunk.Similarity)
		b.WriteString(chunk.Content)
		b.WriteString("\n\n")
	}

	b.WriteString("USER QUESTION:\n")
	b.WriteString(userQuestion)

	return b.String()
}

// BuildCitations snapshots the retrieved chunks into citations, truncating
// the echoed content so responses stay small.
func BuildCitations(chunks []storage.RetrievedChunk) []storage.Citation {
	citations := make([]storage.Citation, 0, len(chunks))
	for _, chunk := range chunks {
		citations = append(citations, storage.Citation{
			ChunkID:         chunk.ID,
			Content:         truncateContent(chunk.Content, citationContentLimit),
			SimilarityScore: chunk.Similarity,
			Metadata: storage.CitationMetadata{
				DocumentID:   chunk.DocumentID,
				DocumentName: chunk.DocumentName,
				Page:         chunk.Metadata.Page,
				Section:      chunk.Metadata.Section,
			},
		})
	}
	return citations
}

// truncateContent cuts content at limit characters, appending an ellipsis
// marker when anything was removed.
func truncateContent(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "..."
}
