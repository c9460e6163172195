// Package chunker splits extracted document text into overlapping,
// sentence-aligned chunks for embedding and retrieval.
package chunker

import (
	"regexp"
	"strings"
)

// Config holds chunking parameters. Token budgets are approximated as
// character counts through the TokensPerChar ratio; no tokenizer is involved.
type Config struct {
	ChunkSizeTokens int // target tokens per chunk (default: 700)
	OverlapTokens   int // overlap tokens between consecutive chunks (default: 150)
	MinChunkTokens  int // minimum tokens for a non-final chunk (default: 400)
	TokensPerChar   int // characters per token approximation (default: 4)
}

// DefaultConfig returns the default chunking configuration.
func DefaultConfig() Config {
	return Config{
		ChunkSizeTokens: 700,
		OverlapTokens:   150,
		MinChunkTokens:  400,
		TokensPerChar:   4,
	}
}

// ChunkMetadata is the transient product of chunking: a slice of the trimmed
// input together with its dense index and character offsets. It has no
// embedding yet.
type ChunkMetadata struct {
	Content    string `json:"content"`
	ChunkIndex int    `json:"chunk_index"`
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
}

// sentenceEndPattern matches a sentence terminator followed by whitespace,
// or a blank-line paragraph break.
var sentenceEndPattern = regexp.MustCompile(`[.!?]\s+|\n{2,}|(\r\n){2,}`)

// codeFencePattern matches fenced code blocks.
var codeFencePattern = regexp.MustCompile("(?s)```.*?```|(?m)^(\t| {4}).+$")

// Chunker splits text into chunks according to its configuration.
type Chunker struct {
	config Config
}

// New creates a Chunker. Non-positive config fields fall back to defaults.
func New(cfg Config) *Chunker {
	def := DefaultConfig()
	if cfg.ChunkSizeTokens <= 0 {
		cfg.ChunkSizeTokens = def.ChunkSizeTokens
	}
	if cfg.OverlapTokens <= 0 {
		cfg.OverlapTokens = def.OverlapTokens
	}
	if cfg.MinChunkTokens <= 0 {
		cfg.MinChunkTokens = def.MinChunkTokens
	}
	if cfg.TokensPerChar <= 0 {
		cfg.TokensPerChar = def.TokensPerChar
	}
	return &Chunker{config: cfg}
}

// Chunk splits text into ordered chunks. Blank input yields an empty list.
// Offsets refer to positions in the trimmed input; indices are dense,
// zero-based and strictly increasing. The trailing remainder is always kept
// even when it falls below the minimum size.
func (c *Chunker) Chunk(text string) []ChunkMetadata {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	textLength := len(text)
	estimatedChars := c.config.ChunkSizeTokens * c.config.TokensPerChar
	overlapChars := c.config.OverlapTokens * c.config.TokensPerChar

	var chunks []ChunkMetadata
	startPos := 0
	chunkIndex := 0

	for startPos < textLength {
		endPos := startPos + estimatedChars
		if endPos > textLength {
			endPos = textLength
		}

		// Not the last chunk: snap the boundary to the nearest sentence end
		// inside a symmetric search window around the proposed position.
		if endPos < textLength {
			if sentenceEnd := c.findSentenceEnd(text, endPos, estimatedChars/2); sentenceEnd > startPos {
				endPos = sentenceEnd
			}
		}

		content := strings.TrimSpace(text[startPos:endPos])

		// Chunks below the minimum are skipped, except the trailing remainder.
		estimatedTokens := len(content) / c.config.TokensPerChar
		if content != "" && (estimatedTokens >= c.config.MinChunkTokens || endPos >= textLength) {
			chunks = append(chunks, ChunkMetadata{
				Content:    content,
				ChunkIndex: chunkIndex,
				StartChar:  startPos,
				EndChar:    endPos,
			})
			chunkIndex++
		}

		// Next window starts one overlap before the estimated boundary, but
		// never behind the end of this chunk, so progress is guaranteed.
		next := startPos + estimatedChars - overlapChars
		if next < endPos {
			next = endPos
		}
		if next <= startPos {
			break
		}
		startPos = next
	}

	return chunks
}

// findSentenceEnd returns the position just past the sentence terminator
// closest to targetPos within ±searchWindow, or -1 when none is found.
func (c *Chunker) findSentenceEnd(text string, targetPos, searchWindow int) int {
	start := targetPos - searchWindow
	if start < 0 {
		start = 0
	}
	end := targetPos + searchWindow
	if end > len(text) {
		end = len(text)
	}

	matches := sentenceEndPattern.FindAllStringIndex(text[start:end], -1)

	bestPos := -1
	bestDistance := int(^uint(0) >> 1)
	for _, m := range matches {
		absPos := start + m[1]
		distance := absPos - targetPos
		if distance < 0 {
			distance = -distance
		}
		if distance < bestDistance {
			bestDistance = distance
			bestPos = absPos
		}
	}

	return bestPos
}

// HasCodeBlock reports whether the content contains a fenced or indented
// code block. Used to populate chunk metadata.
func HasCodeBlock(content string) bool {
	return codeFencePattern.MatchString(content)
}
