package parser

import (
	"unicode/utf8"

	"pdfchat/internal/chunker"
)

// TextParser splits plain text through the sliding-window chunker. All
// spans report page 1 since plain text has no page structure.
type TextParser struct {
	Options chunker.Options
}

func (p *TextParser) Parse(data []byte) ([]Chunk, error) {
	if !utf8.Valid(data) {
		return nil, &ParseError{Reason: "not valid utf-8 text"}
	}
	spans := chunker.Split(string(data), p.Options)
	if len(spans) == 0 {
		return nil, &ParseError{Reason: "empty document"}
	}
	chunks := make([]Chunk, len(spans))
	for i, s := range spans {
		chunks[i] = Chunk{Index: s.Index, Page: 1, Text: s.Text}
	}
	return chunks, nil
}
