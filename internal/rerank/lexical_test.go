package rerank

import (
	"context"
	"testing"
)

func TestLexicalRerank(t *testing.T) {
	docs := []string{
		"unrelated chatter about lunch",
		"the methodology uses a randomized trial",
		"methodology summary: randomized controlled trial with placebo",
	}
	tests := []struct {
		name string
		topN int
		want []int
	}{
		{"all", 0, []int{1, 2, 0}},
		{"capped", 2, []int{1, 2}},
		{"over cap", 10, []int{1, 2, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewLexical().Rerank(context.Background(), "methodology randomized trial", docs, tt.topN)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("want %v got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("want %v got %v", tt.want, got)
				}
			}
		})
	}
}

func TestLexicalRerankStableOnTies(t *testing.T) {
	got, err := NewLexical().Rerank(context.Background(), "zzz", []string{"a b", "c d", "e f"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i, idx := range got {
		if idx != i {
			t.Fatalf("expected input order on ties, got %v", got)
		}
	}
}
