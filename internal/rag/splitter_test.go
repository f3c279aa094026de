package rag

import (
	"strings"
	"testing"
)

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	s := NewSplitter(1000, 200)
	chunks := s.Split("a short paragraph")
	if len(chunks) != 1 || chunks[0] != "a short paragraph" {
		t.Fatalf("unexpected chunks %v", chunks)
	}
}

func TestSplitEmptyText(t *testing.T) {
	s := NewSplitter(1000, 200)
	if chunks := s.Split("   \n  "); chunks != nil {
		t.Fatalf("expected no chunks, got %v", chunks)
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	s := NewSplitter(80, 0)
	text := strings.Repeat("first paragraph sentence. ", 3) + "\n\n" +
		strings.Repeat("second paragraph sentence. ", 3)

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if strings.Contains(c, "\n\n") {
			t.Fatalf("chunk crosses a paragraph boundary: %q", c)
		}
	}
}

func TestSplitRespectsChunkSize(t *testing.T) {
	s := NewSplitter(100, 20)
	words := strings.Repeat("word ", 200)

	chunks := s.Split(words)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 100 {
			t.Fatalf("chunk %d is %d bytes, over the limit", i, len(c))
		}
		if c == "" {
			t.Fatalf("chunk %d is empty", i)
		}
	}
}

func TestSplitCarriesOverlap(t *testing.T) {
	s := NewSplitter(50, 20)
	words := make([]string, 40)
	for i := range words {
		words[i] = "tok" + string(rune('a'+i%26))
	}
	chunks := s.Split(strings.Join(words, " "))
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Consecutive chunks share the trailing tokens of the previous one.
	prevTail := strings.Fields(chunks[0])
	next := strings.Fields(chunks[1])
	if len(prevTail) == 0 || len(next) == 0 {
		t.Fatal("unexpected empty chunk")
	}
	if next[0] != prevTail[len(prevTail)-1] && !strings.Contains(chunks[1], prevTail[len(prevTail)-1]) {
		t.Fatalf("no overlap between %q and %q", chunks[0], chunks[1])
	}
}

func TestSplitUnbrokenText(t *testing.T) {
	s := NewSplitter(100, 20)
	blob := strings.Repeat("x", 350)

	chunks := s.Split(blob)
	if len(chunks) < 4 {
		t.Fatalf("expected hard splits, got %d chunks", len(chunks))
	}
	var rebuilt strings.Builder
	for _, c := range chunks {
		if len(c) > 100 {
			t.Fatalf("chunk exceeds limit: %d bytes", len(c))
		}
		rebuilt.WriteString(c)
	}
	if !strings.Contains(rebuilt.String(), strings.Repeat("x", 100)) {
		t.Fatal("content lost in hard split")
	}
}
