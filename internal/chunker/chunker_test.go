package chunker

import (
	"strings"
	"testing"
)

func TestWindowChunkerEmptyText(t *testing.T) {
	c := NewWindowChunker(10, 2)
	chunks, err := c.Chunk("a.pdf", "   \n\t ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks, got %d", len(chunks))
	}
}

func TestWindowChunkerOverlapAndTags(t *testing.T) {
	text := strings.Repeat("x", 25)
	c := NewWindowChunker(10, 3)
	chunks, err := c.Chunk("paper.pdf", text)
	if err != nil {
		t.Fatal(err)
	}
	// windows start at 0, 7, 14, 21
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Filename != "paper.pdf" {
			t.Fatalf("chunk %d has filename %q", i, ch.Filename)
		}
		if ch.Index != i {
			t.Fatalf("chunk %d has index %d", i, ch.Index)
		}
		if len([]rune(ch.Text)) > 10 {
			t.Fatalf("chunk %d longer than window: %d", i, len(ch.Text))
		}
	}
	if chunks[0].ChunkID != "paper.pdf:0" {
		t.Fatalf("unexpected chunk id %q", chunks[0].ChunkID)
	}
	if got := len(chunks[3].Text); got != 4 {
		t.Fatalf("expected last window of 4 runes, got %d", got)
	}
}

func TestWindowChunkerPrefersWordBoundaries(t *testing.T) {
	c := NewWindowChunker(12, 0)
	chunks, err := c.Chunk("doc", "alpha beta gamma delta")
	if err != nil {
		t.Fatal(err)
	}
	for _, ch := range chunks {
		for _, w := range strings.Fields(ch.Text) {
			switch w {
			case "alpha", "beta", "gamma", "delta":
			default:
				t.Fatalf("word split across windows: %q in %q", w, ch.Text)
			}
		}
	}
}

func TestWindowChunkerCountsRunes(t *testing.T) {
	c := NewWindowChunker(4, 0)
	chunks, err := c.Chunk("doc", "ééééé")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 || chunks[0].Text != "éééé" || chunks[1].Text != "é" {
		t.Fatalf("unexpected rune windows: %+v", chunks)
	}
}

func TestNewWindowChunkerClampsOverlap(t *testing.T) {
	c := NewWindowChunker(5, 9)
	chunks, err := c.Chunk("doc", "abcdefghij")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected overlap to be dropped, got %d chunks", len(chunks))
	}
}

func TestSentenceChunker(t *testing.T) {
	c := NewSentenceChunker(2, 1)
	chunks, err := c.Chunk("notes.pdf", "One. Two! Three? Four.")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"One. Two!", "Two! Three?", "Three? Four."}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, w := range want {
		if chunks[i].Text != w {
			t.Fatalf("chunk %d: want %q got %q", i, w, chunks[i].Text)
		}
		if chunks[i].Filename != "notes.pdf" {
			t.Fatalf("chunk %d missing filename tag", i)
		}
	}
}
