package tfidf

import (
	"context"
	"errors"
	"math"
	"slices"
	"sync/atomic"

	"docsum/internal/textutil"
)

// ErrNotPrepared is returned when embedding before Prepare.
var ErrNotPrepared = errors.New("tfidf: embedder not prepared")

// model is the vocabulary fitted by one Prepare call. It is never mutated
// after publication.
type model struct {
	terms map[string]int
	idf   []float64
}

// Embedder is an offline TF-IDF vectorizer fitted on the indexed corpus.
// Vectors are L2-normalized so a dot product is the cosine similarity.
// The zero value is usable once Prepare has run.
type Embedder struct {
	fitted atomic.Pointer[model]
}

// NewEmbedder creates an unprepared TF-IDF embedder.
func NewEmbedder() *Embedder { return &Embedder{} }

func (e *Embedder) Name() string { return "tfidf" }

// Prepare fits the vocabulary and smoothed IDF weights to corpus and
// replaces any previous fit.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("tfidf: empty corpus")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		for tok := range textutil.TokenSet(text) {
			df[tok]++
		}
	}
	if len(df) == 0 {
		return errors.New("tfidf: corpus has no indexable tokens")
	}
	vocab := make([]string, 0, len(df))
	for term := range df {
		vocab = append(vocab, term)
	}
	slices.Sort(vocab)

	n := float64(len(corpus))
	m := &model{terms: make(map[string]int, len(vocab)), idf: make([]float64, len(vocab))}
	for i, term := range vocab {
		m.terms[term] = i
		m.idf[i] = 1 + math.Log((1+n)/(1+float64(df[term])))
	}
	e.fitted.Store(m)
	return nil
}

// Dimension is the vocabulary size of the current fit, or 0.
func (e *Embedder) Dimension() int {
	if m := e.fitted.Load(); m != nil {
		return len(m.idf)
	}
	return 0
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error) {
	m := e.fitted.Load()
	if m == nil {
		return nil, ErrNotPrepared
	}
	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, m.vector(text))
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(_ context.Context, text string) ([]float64, error) {
	m := e.fitted.Load()
	if m == nil {
		return nil, ErrNotPrepared
	}
	return m.vector(text), nil
}

// vector weighs term frequencies of in-vocabulary tokens by IDF. Text with
// no known token maps to the zero vector.
func (m *model) vector(text string) []float64 {
	vec := make([]float64, len(m.idf))
	known := 0
	for _, tok := range textutil.Tokens(text) {
		if idx, ok := m.terms[tok]; ok {
			vec[idx]++
			known++
		}
	}
	if known == 0 {
		return vec
	}
	var sq float64
	for i, count := range vec {
		if count == 0 {
			continue
		}
		vec[i] = count / float64(known) * m.idf[i]
		sq += vec[i] * vec[i]
	}
	if norm := math.Sqrt(sq); norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
