package services

import (
	"strings"
	"unicode/utf8"
)

type TextChunker interface {
	ChunkText(text string, maxChunkSize int, overlap int) []string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

// ChunkText packs paragraphs into chunks of about maxChunkSize runes.
// Paragraphs that are too long on their own are packed line by line, and
// each new chunk starts with the last overlap runes of the previous one.
func (tc *textChunker) ChunkText(text string, maxChunkSize int, overlap int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}

	c := &chunkBuilder{max: maxChunkSize, overlap: overlap}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if utf8.RuneCountInString(para) <= maxChunkSize {
			c.add(para, "\n\n")
			continue
		}

		// Resumes rarely have sentences; a long block is usually a bullet list
		for _, line := range splitIntoLines(para) {
			for _, piece := range splitRunes(line, maxChunkSize-overlap-1) {
				c.add(piece, "\n")
			}
		}
	}

	return c.finish()
}

type chunkBuilder struct {
	max     int
	overlap int
	chunks  []string
	current strings.Builder
	size    int
}

func (c *chunkBuilder) add(piece, sep string) {
	pieceLen := utf8.RuneCountInString(piece)
	if c.size > 0 && c.size+len(sep)+pieceLen > c.max {
		prev := c.current.String()
		c.chunks = append(c.chunks, prev)
		c.current.Reset()
		c.size = 0

		if tail := getLastNChars(prev, c.overlap); tail != "" {
			c.current.WriteString(tail)
			c.size = utf8.RuneCountInString(tail)
		}
	}

	if c.size > 0 {
		c.current.WriteString(sep)
		c.size += len(sep)
	}
	c.current.WriteString(piece)
	c.size += pieceLen
}

func (c *chunkBuilder) finish() []string {
	if c.size > 0 {
		c.chunks = append(c.chunks, c.current.String())
	}
	return c.chunks
}

func splitIntoLines(text string) []string {
	var result []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			result = append(result, line)
		}
	}
	return result
}

// splitRunes cuts s into pieces of at most n runes.
func splitRunes(s string, n int) []string {
	if n <= 0 {
		n = 1
	}
	runes := []rune(s)
	if len(runes) <= n {
		return []string{s}
	}

	var pieces []string
	for start := 0; start < len(runes); start += n {
		end := start + n
		if end > len(runes) {
			end = len(runes)
		}
		pieces = append(pieces, string(runes[start:end]))
	}
	return pieces
}

func getLastNChars(text string, n int) string {
	if n <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= n {
		return text
	}

	return string(runes[len(runes)-n:])
}
