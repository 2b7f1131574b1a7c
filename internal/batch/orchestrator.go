// Package batch runs the summarizer over every document of a submission
// and reports per-file progress.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"docsum/internal/domain"
	"docsum/internal/logger"
	"docsum/internal/metrics"
	"docsum/internal/workerpool"
)

// Reasons attached to documents that never reach summarization.
const (
	ReasonNoText   = "no text could be extracted"
	ReasonNoChunks = "text could not be split into chunks"
)

// DocumentSummarizer is implemented by *summarizer.Summarizer.
type DocumentSummarizer interface {
	Summarize(ctx context.Context, filename, language string, chunkCount int) (domain.DocumentSummary, error)
}

type Orchestrator struct {
	summarizer DocumentSummarizer
	pool       *workerpool.Pool
	metrics    *metrics.Metrics
	log        logger.Logger
}

func NewOrchestrator(s DocumentSummarizer, pool *workerpool.Pool, m *metrics.Metrics, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.Nop()
	}
	return &Orchestrator{summarizer: s, pool: pool, metrics: m, log: log}
}

// Run emits a terminal event for every document and blocks until all
// summarization tasks have finished. Documents never affect each other.
func (o *Orchestrator) Run(ctx context.Context, docs []domain.ExtractionResult, pub domain.Publisher) Report {
	report := Report{
		ID:        uuid.NewString(),
		Documents: make([]DocumentReport, len(docs)),
		Started:   time.Now(),
	}
	log := o.log.With(logger.String("batch", report.ID))
	log.Info("batch started", logger.Int("documents", len(docs)))

	var wg sync.WaitGroup
	for i, doc := range docs {
		i, doc := i, doc
		report.Documents[i].Filename = doc.Filename
		if status, reason := preflight(doc); status != "" {
			o.finish(pub, &report.Documents[i], status, &domain.Result{Error: reason}, 0)
			log.Info("document not summarized",
				logger.String("file", doc.Filename),
				logger.String("status", string(status)),
				logger.String("reason", reason))
			continue
		}

		wg.Add(1)
		err := o.pool.Submit(ctx, func() {
			defer wg.Done()
			o.summarize(ctx, log, doc, &report.Documents[i], pub)
		})
		if err != nil {
			wg.Done()
			o.finish(pub, &report.Documents[i], domain.StatusError, &domain.Result{Error: err.Error()}, 0)
			log.Error("schedule document", logger.String("file", doc.Filename), logger.Error(err))
		}
	}
	wg.Wait()

	report.Elapsed = time.Since(report.Started)
	log.Info("batch finished",
		logger.Int("completed", report.Completed()),
		logger.Int("failed", report.Failed()),
		logger.Int("skipped", report.Skipped()),
		logger.Duration("elapsed", report.Elapsed))
	return report
}

// preflight returns the terminal status for a document that cannot be
// summarized, or "" when it can.
func preflight(doc domain.ExtractionResult) (domain.Status, string) {
	switch {
	case doc.Err != nil:
		return domain.StatusExtractionError, doc.Err.Error()
	case doc.Text == "":
		return domain.StatusSkipped, ReasonNoText
	case doc.ChunkCount <= 0:
		return domain.StatusChunkingError, ReasonNoChunks
	}
	return "", ""
}

func (o *Orchestrator) summarize(ctx context.Context, log logger.Logger, doc domain.ExtractionResult, out *DocumentReport, pub domain.Publisher) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("panic: %v", r)
			log.Error("document task panicked", logger.String("file", doc.Filename), logger.String("panic", msg))
			o.finish(pub, out, domain.StatusError, &domain.Result{Error: msg}, time.Since(start))
		}
	}()

	pub.Publish(domain.NewEvent(doc.Filename, domain.StatusSummarizing, nil))
	summary, err := o.summarizer.Summarize(ctx, doc.Filename, doc.Lang(), doc.ChunkCount)
	if err != nil {
		log.Error("summarize document", logger.String("file", doc.Filename), logger.Error(err))
		o.finish(pub, out, domain.StatusError, &domain.Result{Error: err.Error()}, time.Since(start))
		return
	}
	out.Summary = &summary
	o.finish(pub, out, domain.StatusCompleted, &domain.Result{
		Success:  true,
		Summary:  summary.Text,
		Failures: summary.Failures(),
	}, time.Since(start))
}

// finish records the terminal outcome and publishes it. Each document slot
// is written by exactly one goroutine.
func (o *Orchestrator) finish(pub domain.Publisher, out *DocumentReport, status domain.Status, result *domain.Result, elapsed time.Duration) {
	out.Status = status
	out.Error = result.Error
	out.Duration = elapsed
	o.metrics.ObserveDocument(status)
	pub.Publish(domain.NewEvent(out.Filename, status, result))
}
