package extractive

import (
	"context"
	"errors"
	"strings"
	"testing"

	"docsum/internal/domain"
)

func TestCompleteNoSentencesIsMalformed(t *testing.T) {
	_, err := New(3).Complete(context.Background(), "", "methods", []string{"   "})
	if !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestCompleteKeepsSourceOrderAndLimit(t *testing.T) {
	docs := []string{
		"Transformers dominate language modelling. The weather was nice.",
		"We train transformers on a large corpus. Transformers scale with data.",
	}
	out, err := New(2).Complete(context.Background(), "sys", "Describe the transformers training", docs)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 bullet lines, got %q", out)
	}
	for _, l := range lines {
		if !strings.HasPrefix(l, "- ") {
			t.Fatalf("expected bullet, got %q", l)
		}
		if strings.Contains(l, "weather") {
			t.Fatalf("irrelevant sentence selected: %q", out)
		}
	}
}

func TestCompleteDeduplicatesOverlap(t *testing.T) {
	docs := []string{"Alpha result holds.", "Alpha result holds."}
	out, err := New(5).Complete(context.Background(), "", "", docs)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Count(out, "Alpha result holds.") != 1 {
		t.Fatalf("expected duplicate sentence once, got %q", out)
	}
}
