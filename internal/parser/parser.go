package parser

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"pdfchat/internal/chunker"
)

// ErrUnsupportedFormat means no parser variant accepts the document.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Chunk is a unit of extracted text with a fixed position in document
// order. Index is contiguous from 0; Page is the 1-based source page.
type Chunk struct {
	Index int
	Page  int
	Text  string
}

// Parser extracts an ordered chunk sequence from raw document bytes. Each
// supported format provides one implementation of this contract.
type Parser interface {
	Parse(data []byte) ([]Chunk, error)
}

// ParseError reports corrupt, empty, or otherwise unusable input. Parse
// failures are never retried.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse failed: %s: %v", e.Reason, e.Err)
	}
	return "parse failed: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

var pdfMagic = []byte("%PDF-")

// Registry selects the parser variant for a document by filename extension,
// falling back to content sniffing.
type Registry struct {
	pdf  Parser
	text Parser
}

func NewRegistry(chunkOpts chunker.Options) *Registry {
	return &Registry{
		pdf:  &PDFParser{},
		text: &TextParser{Options: chunkOpts},
	}
}

func (r *Registry) ForDocument(filename string, data []byte) (Parser, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return r.pdf, nil
	case ".txt", ".md":
		return r.text, nil
	}
	if bytes.HasPrefix(data, pdfMagic) {
		return r.pdf, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
}
