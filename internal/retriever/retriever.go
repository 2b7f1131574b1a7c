// Package retriever indexes extracted documents and answers scoped,
// two-stage relevance queries against them.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"time"

	"docsum/internal/domain"
	"docsum/internal/logger"
)

// ErrIndexUnavailable is wrapped by every indexing failure.
var ErrIndexUnavailable = errors.New("index unavailable")

const (
	DefaultTopKDense  = 100
	DefaultTopKRerank = 100
)

// Options tunes the retriever. Zero values select defaults.
type Options struct {
	TopKDense   int
	TopKRerank  int
	CallTimeout time.Duration
	Logger      logger.Logger
}

// Retriever owns the chunk index of one submission. Index is called once;
// RelevantChunks may then be called from many goroutines.
type Retriever struct {
	chunker  domain.Chunker
	embedder domain.Embedder
	store    domain.VectorStore
	reranker domain.Reranker

	topKDense   int
	topKRerank  int
	callTimeout time.Duration
	log         logger.Logger
}

func New(chunker domain.Chunker, embedder domain.Embedder, store domain.VectorStore, reranker domain.Reranker, opts Options) *Retriever {
	r := &Retriever{
		chunker:     chunker,
		embedder:    embedder,
		store:       store,
		reranker:    reranker,
		topKDense:   opts.TopKDense,
		topKRerank:  opts.TopKRerank,
		callTimeout: opts.CallTimeout,
		log:         opts.Logger,
	}
	if r.topKDense <= 0 {
		r.topKDense = DefaultTopKDense
	}
	if r.topKRerank <= 0 {
		r.topKRerank = DefaultTopKRerank
	}
	if r.log == nil {
		r.log = logger.Nop()
	}
	return r
}

// Index chunks every document that has text and no extraction error, embeds
// all chunks and stores them. It returns a copy of docs with ChunkCount set.
// On failure nothing stays indexed and the error wraps ErrIndexUnavailable.
func (r *Retriever) Index(ctx context.Context, docs []domain.ExtractionResult) ([]domain.ExtractionResult, error) {
	out := make([]domain.ExtractionResult, len(docs))
	copy(out, docs)

	var chunks []domain.Chunk
	var texts []string
	for i := range out {
		out[i].ChunkCount = 0
		if out[i].Err != nil || out[i].Text == "" {
			continue
		}
		cs, err := r.chunker.Chunk(out[i].Filename, out[i].Text)
		if err != nil {
			// an unchunkable document ends as chunking_error, not a batch failure
			r.log.Warn("chunking failed", logger.String("file", out[i].Filename), logger.Error(err))
			continue
		}
		out[i].ChunkCount = len(cs)
		for _, c := range cs {
			chunks = append(chunks, c)
			texts = append(texts, c.Text)
		}
	}
	if len(chunks) == 0 {
		r.log.Info("nothing to index", logger.Int("documents", len(docs)))
		return out, nil
	}

	if err := r.build(ctx, chunks, texts); err != nil {
		if cerr := r.store.Clear(context.WithoutCancel(ctx)); cerr != nil {
			r.log.Warn("clearing partial index failed", logger.Error(cerr))
		}
		for i := range out {
			out[i].ChunkCount = 0
		}
		return out, fmt.Errorf("%w: %w", ErrIndexUnavailable, err)
	}
	r.log.Info("index built",
		logger.Int("documents", len(docs)),
		logger.Int("chunks", len(chunks)),
		logger.String("embedder", r.embedder.Name()))
	return out, nil
}

func (r *Retriever) build(ctx context.Context, chunks []domain.Chunk, texts []string) error {
	if err := r.embedder.Prepare(texts); err != nil {
		return fmt.Errorf("prepare embedder: %w", err)
	}
	var vectors [][]float64
	err := r.call(ctx, func(ctx context.Context) error {
		var err error
		vectors, err = r.embedder.EmbedDocuments(ctx, texts)
		return err
	})
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	dim := r.embedder.Dimension()
	if len(vectors[0]) > 0 {
		dim = len(vectors[0])
	}
	return r.call(ctx, func(ctx context.Context) error {
		if err := r.store.Clear(ctx); err != nil {
			return fmt.Errorf("clear store: %w", err)
		}
		if err := r.store.Init(ctx, dim); err != nil {
			return fmt.Errorf("init store: %w", err)
		}
		if err := r.store.Upsert(ctx, chunks, vectors); err != nil {
			return fmt.Errorf("upsert: %w", err)
		}
		return nil
	})
}

// RelevantChunks returns the texts of the chunks of filename most relevant to
// query, best first. Dense search keeps min(chunkCount, TopKDense) candidates
// and reranking against rerankQuery keeps min(chunkCount, TopKRerank).
// An empty dense stage yields an empty result and no error.
func (r *Retriever) RelevantChunks(ctx context.Context, filename, query, rerankQuery string, chunkCount int) ([]string, error) {
	if chunkCount <= 0 {
		return nil, nil
	}
	var vec []float64
	err := r.call(ctx, func(ctx context.Context) error {
		var err error
		vec, err = r.embedder.EmbedQuery(ctx, query)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var hits []domain.SearchResult
	err = r.call(ctx, func(ctx context.Context) error {
		var err error
		hits, err = r.store.Search(ctx, vec, min(chunkCount, r.topKDense), domain.Filter{Filename: filename})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	texts := make([]string, len(hits))
	for i, h := range hits {
		texts[i] = h.Chunk.Text
	}
	if r.reranker == nil {
		return texts[:min(len(texts), r.topKRerank)], nil
	}
	var order []int
	err = r.call(ctx, func(ctx context.Context) error {
		var err error
		order, err = r.reranker.Rerank(ctx, rerankQuery, texts, min(chunkCount, r.topKRerank))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}
	out := make([]string, 0, len(order))
	for _, idx := range order {
		if idx < 0 || idx >= len(texts) {
			return nil, fmt.Errorf("rerank: index %d out of range", idx)
		}
		out = append(out, texts[idx])
	}
	return out, nil
}

// call runs fn under the per-call timeout.
func (r *Retriever) call(ctx context.Context, fn func(context.Context) error) error {
	if r.callTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	return fn(ctx)
}
