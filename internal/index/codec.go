package index

import (
	"fmt"
	"io"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"

	"pdfchat/internal/embeddings"
	"pdfchat/internal/parser"
)

// Payload artifact layout, MUS-encoded: entry count and dimension, then one
// record per entry (chunk index, page, text, dimension raw float32 values).
// Entries are written and read strictly in index order.

// Encode streams the index to w, one entry at a time.
func (idx *Index) Encode(w io.Writer) error {
	head := make([]byte, varint.Int.Size(len(idx.Entries))+varint.Int.Size(idx.Dimension))
	n := varint.Int.Marshal(len(idx.Entries), head)
	varint.Int.Marshal(idx.Dimension, head[n:])
	if _, err := w.Write(head); err != nil {
		return fmt.Errorf("write index header: %w", err)
	}

	var buf []byte
	for _, e := range idx.Entries {
		size := entrySize(e)
		if cap(buf) < size {
			buf = make([]byte, size)
		}
		buf = buf[:size]
		marshalEntry(e, buf)
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("write index entry %d: %w", e.Chunk.Index, err)
		}
	}
	return nil
}

// Decode reads an index previously written by Encode.
func Decode(r io.Reader) (*Index, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read index payload: %w", err)
	}

	count, n, err := varint.Int.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decode entry count: %w", err)
	}
	data = data[n:]
	dim, n, err := varint.Int.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("decode dimension: %w", err)
	}
	data = data[n:]
	if count < 0 || dim <= 0 {
		return nil, fmt.Errorf("invalid index header: count=%d dim=%d", count, dim)
	}

	idx := &Index{Dimension: dim, Entries: make([]Entry, 0, count)}
	for i := 0; i < count; i++ {
		e, n, err := unmarshalEntry(data, dim)
		if err != nil {
			return nil, fmt.Errorf("decode entry %d: %w", i, err)
		}
		data = data[n:]
		idx.Entries = append(idx.Entries, e)
	}
	return idx, nil
}

func entrySize(e Entry) int {
	size := varint.Int.Size(e.Chunk.Index)
	size += varint.Int.Size(e.Chunk.Page)
	size += ord.String.Size(e.Chunk.Text)
	for _, v := range e.Vector {
		size += raw.Float32.Size(v)
	}
	return size
}

func marshalEntry(e Entry, bs []byte) int {
	n := varint.Int.Marshal(e.Chunk.Index, bs)
	n += varint.Int.Marshal(e.Chunk.Page, bs[n:])
	n += ord.String.Marshal(e.Chunk.Text, bs[n:])
	for _, v := range e.Vector {
		n += raw.Float32.Marshal(v, bs[n:])
	}
	return n
}

func unmarshalEntry(bs []byte, dim int) (Entry, int, error) {
	var e Entry
	idx, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return e, n, err
	}
	page, n1, err := varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return e, n, err
	}
	text, n1, err := ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return e, n, err
	}
	vec := make(embeddings.Vector, dim)
	for i := 0; i < dim; i++ {
		v, n1, err := raw.Float32.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return e, n, err
		}
		vec[i] = v
	}
	e = Entry{
		Chunk:  parser.Chunk{Index: idx, Page: page, Text: text},
		Vector: vec,
	}
	return e, n, nil
}
