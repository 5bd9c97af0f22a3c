package index

import (
	"fmt"
	"sort"

	"pdfchat/internal/embeddings"
	"pdfchat/internal/parser"
)

// Entry pairs one chunk's metadata with its embedding. Entries keep the
// chunk order the parser produced.
type Entry struct {
	Chunk  parser.Chunk
	Vector embeddings.Vector
}

// Index is the ordered, similarity-searchable structure built once per
// ingestion run. It is persisted and replaced only as a whole.
type Index struct {
	Dimension int
	Entries   []Entry
}

// Builder assembles an Index incrementally so large documents never need
// the full chunk set resident before assembly starts.
type Builder struct {
	dim     int
	entries []Entry
}

// NewBuilder creates a builder. Pass dim 0 to adopt the dimension of the
// first vector added.
func NewBuilder(dim int) *Builder {
	return &Builder{dim: dim}
}

func (b *Builder) Add(chunk parser.Chunk, vec embeddings.Vector) error {
	if len(vec) == 0 {
		return fmt.Errorf("chunk %d: empty vector", chunk.Index)
	}
	if b.dim == 0 {
		b.dim = len(vec)
	}
	if len(vec) != b.dim {
		return fmt.Errorf("chunk %d: dimension %d does not match index dimension %d", chunk.Index, len(vec), b.dim)
	}
	if chunk.Index != len(b.entries) {
		return fmt.Errorf("chunk %d added out of order at position %d", chunk.Index, len(b.entries))
	}
	b.entries = append(b.entries, Entry{Chunk: chunk, Vector: vec})
	return nil
}

func (b *Builder) Build() (*Index, error) {
	if len(b.entries) == 0 {
		return nil, fmt.Errorf("index has no entries")
	}
	return &Index{Dimension: b.dim, Entries: b.entries}, nil
}

// Result is a single similarity hit.
type Result struct {
	Entry Entry
	Score float32
}

// Search returns the top k entries by cosine similarity to query. Ties
// break on entry order, so results are deterministic for a given index.
func (idx *Index) Search(query embeddings.Vector, k int) []Result {
	if k <= 0 || len(idx.Entries) == 0 {
		return nil
	}
	results := make([]Result, len(idx.Entries))
	for i, e := range idx.Entries {
		results[i] = Result{Entry: e, Score: embeddings.CosineSimilarity(query, e.Vector)}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}
