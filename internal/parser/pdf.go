package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFParser produces one chunk per page.
type PDFParser struct{}

func (p *PDFParser) Parse(data []byte) (chunks []Chunk, err error) {
	// The pdf reader panics on some malformed files.
	defer func() {
		if rec := recover(); rec != nil {
			chunks = nil
			err = &ParseError{Reason: fmt.Sprintf("corrupt pdf: %v", rec)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &ParseError{Reason: "corrupt pdf", Err: err}
	}

	numPages := reader.NumPage()
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Skip pages that fail to extract; ordering of the rest holds.
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Page:  pageNum,
			Text:  text,
		})
	}

	if len(chunks) == 0 {
		return nil, &ParseError{Reason: "no extractable text"}
	}
	return chunks, nil
}
