package domain

import (
	"context"
	"errors"
)

// ErrMalformedResponse is returned by language models when the reply carries
// no usable text.
var ErrMalformedResponse = errors.New("malformed response")

// Chunk is a fixed-size slice of one document's text used for indexing.
type Chunk struct {
	Filename string
	ChunkID  string
	Text     string
	Index    int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Filter restricts a vector search to the chunks of one document.
// An empty Filename matches every chunk.
type Filter struct {
	Filename string
}

// Match reports whether the chunk passes the filter.
func (f Filter) Match(c Chunk) bool {
	return f.Filename == "" || c.Filename == f.Filename
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	Dimension() int
	EmbedDocuments(ctx context.Context, texts []string) ([][]float64, error)
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
}

// Chunker splits one document's text into chunks tagged with its filename.
type Chunker interface {
	Chunk(filename, text string) ([]Chunk, error)
}

// VectorStore persists vectors and supports filtered similarity search.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float64) error
	Search(ctx context.Context, vector []float64, topK int, filter Filter) ([]SearchResult, error)
	Clear(ctx context.Context) error
}

// Reranker reorders candidate texts against a query. It returns indexes into
// docs, best first, at most topN of them.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []string, topN int) ([]int, error)
}

// LanguageModel generates text from a system instruction, a user instruction
// and grounding documents.
type LanguageModel interface {
	Complete(ctx context.Context, system, user string, docs []string) (string, error)
}

// Publisher accepts progress events. Publish must not block.
type Publisher interface {
	Publish(event Event)
}
