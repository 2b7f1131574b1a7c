package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"docsum/internal/domain"
)

type point struct {
	chunk  domain.Chunk
	vector []float64
}

// Storage is an in-process vector store scored by brute-force cosine
// similarity. Points are bucketed per filename so a filtered search only
// scans one document. It is written once per batch and then read
// concurrently.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	files     []string
	byFile    map[string][]point
	size      int
}

func NewStorage() *Storage { return &Storage{byFile: make(map[string][]point)} }

func (s *Storage) Init(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("memory store: invalid dimension %d", dimension)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.reset()
	return nil
}

func (s *Storage) Upsert(_ context.Context, chunks []domain.Chunk, vectors [][]float64) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("memory store: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.IndexFunc(vectors, func(v []float64) bool { return len(v) != s.dimension }); i >= 0 {
		return fmt.Errorf("memory store: vector %d has dimension %d, want %d", i, len(vectors[i]), s.dimension)
	}
	for i, c := range chunks {
		if _, seen := s.byFile[c.Filename]; !seen {
			s.files = append(s.files, c.Filename)
		}
		s.byFile[c.Filename] = append(s.byFile[c.Filename], point{chunk: c, vector: vectors[i]})
	}
	s.size += len(chunks)
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float64, topK int, filter domain.Filter) ([]domain.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return nil, errors.New("memory store: topK must be positive")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	files := s.files
	if filter.Filename != "" {
		files = []string{filter.Filename}
	}
	var results []domain.SearchResult
	for _, f := range files {
		for _, p := range s.byFile[f] {
			// vectors are L2-normalized, so the dot product is the cosine
			results = append(results, domain.SearchResult{Chunk: p.chunk, Score: dot(p.vector, vector)})
		}
	}
	slices.SortStableFunc(results, func(a, b domain.SearchResult) int { return cmp.Compare(b.Score, a.Score) })
	return results[:min(topK, len(results))], nil
}

func (s *Storage) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
	return nil
}

// Len returns the number of stored chunks.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

func (s *Storage) reset() {
	s.files = nil
	s.byFile = make(map[string][]point)
	s.size = 0
}

func dot(a, b []float64) float64 {
	var sum float64
	for i, n := 0, min(len(a), len(b)); i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
