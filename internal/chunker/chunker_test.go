package chunker

import (
	"strings"
	"testing"
)

func TestSplitOverlap(t *testing.T) {
	text := "one two three four five six seven eight nine ten"
	spans := Split(text, Options{MaxTokens: 4, Overlap: 1})
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
	if spans[0].Text == spans[1].Text {
		t.Fatal("expected overlap but not identical spans")
	}
	if spans[0].WordCount != 4 {
		t.Fatalf("expected word count 4, got %d", spans[0].WordCount)
	}
}

func TestSplitEmptyInput(t *testing.T) {
	spans := Split("", Options{MaxTokens: 10})
	if len(spans) != 0 {
		t.Errorf("expected 0 spans for empty input, got %d", len(spans))
	}
}

func TestSplitNoOverlap(t *testing.T) {
	text := "one two three four five six"
	spans := Split(text, Options{MaxTokens: 3, Overlap: 0})

	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].WordCount != 3 {
		t.Errorf("expected first span to have 3 words, got %d", spans[0].WordCount)
	}
	if spans[1].WordCount != 3 {
		t.Errorf("expected second span to have 3 words, got %d", spans[1].WordCount)
	}
}

func TestSplitIndexesAreContiguous(t *testing.T) {
	text := strings.Repeat("word ", 100)
	spans := Split(text, Options{MaxTokens: 10, Overlap: 2})
	for i, s := range spans {
		if s.Index != i {
			t.Fatalf("span %d has index %d", i, s.Index)
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	text := strings.Repeat("alpha beta gamma ", 50)
	first := Split(text, Options{MaxTokens: 12, Overlap: 3})
	second := Split(text, Options{MaxTokens: 12, Overlap: 3})
	if len(first) != len(second) {
		t.Fatalf("span counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("span %d differs between runs", i)
		}
	}
}

func TestSplitDefaults(t *testing.T) {
	text := "word " + strings.Repeat("test ", 500)
	spans := Split(text, Options{})

	if len(spans) == 0 {
		t.Error("expected spans with default options")
	}
	for _, s := range spans {
		if s.WordCount > 400 {
			t.Errorf("span exceeded default max tokens (400): got %d", s.WordCount)
		}
	}
}
