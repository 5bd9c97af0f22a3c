package chunker

import (
	"strings"
)

// Options controls how text is chunked.
type Options struct {
	MaxTokens int
	Overlap   int
}

// Span is a slice of the document text produced by the sliding window.
type Span struct {
	Index     int
	Text      string
	WordCount int
}

// Split performs a token-based sliding window with overlap. Tokens are
// approximated by whitespace-delimited words. Output is deterministic for
// identical input, which the reprocessing guarantees depend on.
func Split(text string, opts Options) []Span {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 400
	}
	if opts.Overlap < 0 {
		opts.Overlap = 0
	}

	words := strings.Fields(text)
	var spans []Span
	if len(words) == 0 {
		return spans
	}

	step := opts.MaxTokens - opts.Overlap
	if step <= 0 {
		step = opts.MaxTokens
	}

	for start := 0; start < len(words); start += step {
		end := start + opts.MaxTokens
		if end > len(words) {
			end = len(words)
		}
		spans = append(spans, Span{
			Index:     len(spans),
			Text:      strings.Join(words[start:end], " "),
			WordCount: end - start,
		})
		if end == len(words) {
			break
		}
	}
	return spans
}
