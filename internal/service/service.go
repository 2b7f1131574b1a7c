// Package service wires extraction, indexing and batch summarization for
// one submission of files.
package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"docsum/internal/batch"
	"docsum/internal/domain"
	"docsum/internal/logger"
)

// ErrSetup wraps failures that abort a submission before any document is
// summarized.
var ErrSetup = errors.New("batch setup failed")

// ErrDuplicateName is returned when two submitted paths share a basename.
// Progress is keyed by basename, so such a submission is refused whole.
var ErrDuplicateName = errors.New("duplicate filename in submission")

type Extractor interface {
	ExtractAll(ctx context.Context, paths []string) []domain.ExtractionResult
}

type Indexer interface {
	Index(ctx context.Context, docs []domain.ExtractionResult) ([]domain.ExtractionResult, error)
}

type Runner interface {
	Run(ctx context.Context, docs []domain.ExtractionResult, pub domain.Publisher) batch.Report
}

type Exporter interface {
	Save(filename, summary string, formats []string) ([]string, error)
}

type SummaryService struct {
	extractor Extractor
	indexer   Indexer
	runner    Runner
	exporter  Exporter
	formats   []string
	log       logger.Logger
}

func NewSummaryService(extractor Extractor, indexer Indexer, runner Runner, log logger.Logger) *SummaryService {
	if log == nil {
		log = logger.Nop()
	}
	return &SummaryService{extractor: extractor, indexer: indexer, runner: runner, log: log}
}

// WithExport saves every completed summary in the given formats.
func (s *SummaryService) WithExport(exporter Exporter, formats []string) *SummaryService {
	s.exporter = exporter
	s.formats = formats
	return s
}

// CheckNames returns the basenames of paths, or ErrDuplicateName when two
// paths share one.
func CheckNames(paths []string) ([]string, error) {
	names := make([]string, len(paths))
	seen := make(map[string]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
		if first, ok := seen[names[i]]; ok {
			return nil, fmt.Errorf("%w: %s and %s", ErrDuplicateName, first, p)
		}
		seen[names[i]] = p
	}
	return names, nil
}

// Run processes one submission. Every file receives a terminal event. An
// error is returned only for setup failures, in which case no document was
// summarized. A submission with duplicate basenames publishes nothing.
func (s *SummaryService) Run(ctx context.Context, paths []string, pub domain.Publisher) (batch.Report, error) {
	names, err := CheckNames(paths)
	if err != nil {
		return batch.Report{}, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	for _, name := range names {
		pub.Publish(domain.NewEvent(name, domain.StatusQueued, nil))
	}
	for _, name := range names {
		pub.Publish(domain.NewEvent(name, domain.StatusProcessing, nil))
	}

	docs := s.extractor.ExtractAll(ctx, paths)
	indexed, err := s.indexer.Index(ctx, docs)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSetup, err)
		s.log.Error("indexing failed", logger.Int("documents", len(docs)), logger.Error(err))
		for _, name := range names {
			pub.Publish(domain.NewEvent(name, domain.StatusError, &domain.Result{Error: err.Error()}))
		}
		return batch.Report{}, err
	}

	report := s.runner.Run(ctx, indexed, pub)
	if s.exporter != nil {
		for _, sum := range report.Summaries() {
			if _, err := s.exporter.Save(sum.Filename, sum.Text, s.formats); err != nil {
				s.log.Error("export summary", logger.String("file", sum.Filename), logger.Error(err))
			}
		}
	}
	return report, nil
}
