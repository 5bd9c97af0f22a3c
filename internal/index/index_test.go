package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfchat/internal/embeddings"
	"pdfchat/internal/parser"
)

func testChunk(i int) parser.Chunk {
	return parser.Chunk{Index: i, Page: i + 1, Text: "chunk text"}
}

func TestBuilderPreservesOrder(t *testing.T) {
	b := NewBuilder(0)
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Add(testChunk(i), embeddings.Vector{float32(i), 1, 2}))
	}
	idx, err := b.Build()
	require.NoError(t, err)
	require.Len(t, idx.Entries, 5)
	assert.Equal(t, 3, idx.Dimension)
	for i, e := range idx.Entries {
		assert.Equal(t, i, e.Chunk.Index)
	}
}

func TestBuilderRejectsDimensionMismatch(t *testing.T) {
	b := NewBuilder(0)
	require.NoError(t, b.Add(testChunk(0), embeddings.Vector{1, 2, 3}))
	err := b.Add(testChunk(1), embeddings.Vector{1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestBuilderRejectsOutOfOrderAdds(t *testing.T) {
	b := NewBuilder(0)
	require.NoError(t, b.Add(testChunk(0), embeddings.Vector{1, 2}))
	err := b.Add(testChunk(2), embeddings.Vector{3, 4})
	require.Error(t, err)
}

func TestBuilderRejectsEmptyVector(t *testing.T) {
	b := NewBuilder(0)
	require.Error(t, b.Add(testChunk(0), nil))
}

func TestBuildEmptyFails(t *testing.T) {
	_, err := NewBuilder(0).Build()
	require.Error(t, err)
}

func TestSearchRanksBySimilarity(t *testing.T) {
	b := NewBuilder(0)
	vectors := []embeddings.Vector{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
	}
	for i, v := range vectors {
		require.NoError(t, b.Add(testChunk(i), v))
	}
	idx, err := b.Build()
	require.NoError(t, err)

	results := idx.Search(embeddings.Vector{1, 0, 0}, 2)
	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Entry.Chunk.Index)
	assert.Equal(t, 2, results[1].Entry.Chunk.Index)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearchDeterministicOnTies(t *testing.T) {
	b := NewBuilder(0)
	// Identical vectors tie on score; entry order must break the tie.
	for i := 0; i < 4; i++ {
		require.NoError(t, b.Add(testChunk(i), embeddings.Vector{1, 1}))
	}
	idx, err := b.Build()
	require.NoError(t, err)

	first := idx.Search(embeddings.Vector{1, 1}, 4)
	second := idx.Search(embeddings.Vector{1, 1}, 4)
	for i := range first {
		assert.Equal(t, first[i].Entry.Chunk.Index, second[i].Entry.Chunk.Index)
		assert.Equal(t, i, first[i].Entry.Chunk.Index)
	}
}

func TestSearchEmptyAndZeroK(t *testing.T) {
	idx := &Index{Dimension: 2}
	assert.Nil(t, idx.Search(embeddings.Vector{1, 0}, 3))

	b := NewBuilder(0)
	require.NoError(t, b.Add(testChunk(0), embeddings.Vector{1, 0}))
	built, err := b.Build()
	require.NoError(t, err)
	assert.Nil(t, built.Search(embeddings.Vector{1, 0}, 0))
}
