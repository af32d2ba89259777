package chunker

import (
	"regexp"
	"strings"
)

// Config controls chunking of extracted document text.
type Config struct {
	ChunkSizeChars int
	OverlapChars   int
}

const charsPerToken = 4

// DefaultConfig targets ~1000 tokens per chunk with ~150 tokens of overlap,
// using a fixed 4-chars-per-token approximation instead of a tokenizer.
func DefaultConfig() Config {
	return Config{
		ChunkSizeChars: 1000 * charsPerToken,
		OverlapChars:   150 * charsPerToken,
	}
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	newlineRun    = regexp.MustCompile(`\n{3,}`)
)

// Normalize collapses whitespace runs to single spaces, limits consecutive
// newlines to two, and trims the result. Newlines inside paragraphs do not
// survive the first collapse.
func Normalize(text string) string {
	clean := whitespaceRun.ReplaceAllString(text, " ")
	clean = newlineRun.ReplaceAllString(clean, "\n\n")
	return strings.TrimSpace(clean)
}

// Split normalizes text and cuts it into ordered, bounded-size chunks.
// Windows are cut at the last period or newline past the midpoint when one
// exists; otherwise at the raw window edge with the configured overlap.
// The slice order becomes the chunk index. An empty document yields nil.
func Split(text string, cfg Config) []string {
	clean := Normalize(text)
	if clean == "" {
		return nil
	}
	if cfg.ChunkSizeChars <= 0 {
		cfg = DefaultConfig()
	}
	if cfg.OverlapChars < 0 {
		cfg.OverlapChars = 0
	}

	runes := []rune(clean)
	chunks := make([]string, 0, len(runes)/cfg.ChunkSizeChars+1)

	start := 0
	for start < len(runes) {
		end := start + cfg.ChunkSizeChars
		if end >= len(runes) {
			appendChunk(&chunks, runes[start:])
			break
		}

		cut := findBreakpoint(runes, start, end)
		midpoint := start + cfg.ChunkSizeChars/2
		if cut > midpoint {
			appendChunk(&chunks, runes[start:cut])
			start = cut
			continue
		}

		appendChunk(&chunks, runes[start:end])
		nextStart := end - cfg.OverlapChars
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return chunks
}

// findBreakpoint scans backward from end for the last sentence-ending
// period or newline, returning the position just after it, or start if
// none is found.
func findBreakpoint(runes []rune, start, end int) int {
	for i := end; i > start; i-- {
		if runes[i-1] == '.' || runes[i-1] == '\n' {
			return i
		}
	}
	return start
}

func appendChunk(chunks *[]string, runes []rune) {
	chunk := strings.TrimSpace(string(runes))
	if chunk != "" {
		*chunks = append(*chunks, chunk)
	}
}
