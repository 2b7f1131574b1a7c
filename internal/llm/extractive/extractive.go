// Package extractive is an offline language model: it answers every prompt
// with the highest-scoring sentences of the grounding documents.
package extractive

import (
	"context"
	"math"
	"sort"
	"strings"

	"docsum/internal/domain"
	"docsum/internal/textutil"
)

// Model ranks sentences by word frequency (stopwords filtered). The user
// instruction biases the ranking toward sentences sharing its vocabulary.
type Model struct {
	maxSentences int
}

// New creates a frequency-based sentence ranker.
func New(maxSentences int) *Model {
	if maxSentences <= 0 {
		maxSentences = 5
	}
	return &Model{maxSentences: maxSentences}
}

// Complete returns a short extract of docs. The system instruction is
// ignored: extracts stay in the language of the source.
func (m *Model) Complete(ctx context.Context, _ string, user string, docs []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var sentences []string
	for _, d := range docs {
		sentences = append(sentences, textutil.Sentences(d)...)
	}
	if len(sentences) == 0 {
		return "", domain.ErrMalformedResponse
	}
	// Compute word frequencies
	freq := map[string]float64{}
	for _, sent := range sentences {
		for _, tok := range textutil.Tokens(sent) {
			freq[tok]++
		}
	}
	// Normalize frequencies
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}
	hint := textutil.TokenSet(user)

	type pair struct {
		idx   int
		score float64
	}
	seen := make(map[string]struct{}, len(sentences))
	scores := make([]pair, 0, len(sentences))
	for i, sent := range sentences {
		// overlapping chunks repeat sentences
		if _, dup := seen[sent]; dup {
			continue
		}
		seen[sent] = struct{}{}
		tokens := textutil.Tokens(sent)
		sscore := 0.0
		for _, tok := range tokens {
			sscore += freq[tok]
			if _, ok := hint[tok]; ok {
				sscore += 1
			}
		}
		// Normalize by sentence length to avoid bias
		if l := float64(len(tokens)); l > 0 {
			sscore /= math.Sqrt(l)
		}
		scores = append(scores, pair{i, sscore})
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	n := m.maxSentences
	if n > len(scores) {
		n = len(scores)
	}
	// Keep original order among selected
	selected := make([]int, n)
	for i := 0; i < n; i++ {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, 0, n)
	for _, idx := range selected {
		out = append(out, "- "+sentences[idx])
	}
	return strings.Join(out, "\n"), nil
}
