// Package summarizer generates every catalog section of a document
// concurrently and compiles the results into one summary.
package summarizer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"docsum/internal/domain"
	"docsum/internal/logger"
	"docsum/internal/metrics"
	"docsum/internal/sections"
	"docsum/internal/workerpool"
)

const timeLayout = "2006-01-02 15:04:05"

// Options tunes a Summarizer. Zero values select defaults.
type Options struct {
	Sections []domain.Section
	Metrics  *metrics.Metrics
	Logger   logger.Logger
	Now      func() time.Time
}

type Summarizer struct {
	gen     *Generator
	pool    *workerpool.Pool
	catalog []domain.Section
	metrics *metrics.Metrics
	log     logger.Logger
	now     func() time.Time
}

// New creates a Summarizer that runs section tasks on pool. The pool is
// shared and outlives the Summarizer.
func New(gen *Generator, pool *workerpool.Pool, opts Options) *Summarizer {
	s := &Summarizer{
		gen:     gen,
		pool:    pool,
		catalog: opts.Sections,
		metrics: opts.Metrics,
		log:     opts.Logger,
		now:     opts.Now,
	}
	if len(s.catalog) == 0 {
		s.catalog = sections.Catalog()
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Summarize generates all sections of one document and compiles them.
// Section failures are absorbed; an error is returned only when the section
// tasks could not be scheduled.
func (s *Summarizer) Summarize(ctx context.Context, filename, language string, chunkCount int) (domain.DocumentSummary, error) {
	doc := Document{Filename: filename, Language: language, ChunkCount: chunkCount}
	log := s.log.With(logger.String("file", filename))
	results := make([]domain.SectionResult, len(s.catalog))

	var wg sync.WaitGroup
	var submitErr error
	for i, section := range s.catalog {
		i, section := i, section
		wg.Add(1)
		err := s.pool.Submit(ctx, func() {
			defer wg.Done()
			results[i] = s.gen.Generate(ctx, doc, section)
		})
		if err != nil {
			wg.Done()
			submitErr = fmt.Errorf("schedule section %s: %w", section.Key, err)
			break
		}
	}
	// tasks already handed out still write into results
	wg.Wait()
	if submitErr != nil {
		return domain.DocumentSummary{}, submitErr
	}

	for _, r := range results {
		s.metrics.ObserveSection(r)
		if r.Failed() {
			log.Warn("section failed", logger.String("section", r.Key), logger.String("reason", r.ErrorReason))
		}
	}
	at := s.now()
	summary := domain.DocumentSummary{
		Filename:    filename,
		Text:        compile(s.catalog, filename, results, at),
		Sections:    results,
		GeneratedAt: at,
	}
	log.Info("document summarized",
		logger.Int("sections", len(results)),
		logger.Int("failed", len(summary.Failures())))
	return summary, nil
}

// Compile renders results in catalog order, whatever order they are given
// in. Sections without text are left out.
func Compile(filename string, results []domain.SectionResult, at time.Time) string {
	return compile(sections.Catalog(), filename, results, at)
}

func compile(catalog []domain.Section, filename string, results []domain.SectionResult, at time.Time) string {
	byKey := make(map[string]string, len(results))
	for _, r := range results {
		if r.Text != "" && !r.Failed() {
			byKey[r.Key] = r.Text
		}
	}
	parts := []string{
		fmt.Sprintf("# Summary of %s\n", filename),
		fmt.Sprintf("Generated on: %s\n", at.Format(timeLayout)),
	}
	for _, section := range catalog {
		text, ok := byKey[section.Key]
		if !ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("## %s\n", section.DisplayName), text+"\n")
	}
	return strings.Join(parts, "\n")
}
