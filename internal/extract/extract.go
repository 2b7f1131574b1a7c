// Package extract turns uploaded files into plain text and detects the
// language of the text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"docsum/internal/domain"
	"docsum/internal/logger"
)

// Kinds of documents the extractor recognises.
const (
	KindPDF   = "application/pdf"
	KindPNG   = "image/png"
	KindJPEG  = "image/jpeg"
	KindTIFF  = "image/tiff"
	KindBMP   = "image/bmp"
	KindText  = "text/plain"
	KindOther = "application/octet-stream"
)

var (
	ErrUnsupported = errors.New("unsupported file type")
	ErrDuplicate   = errors.New("duplicate filename in submission")
)

// Processor extracts text from one kind of document.
type Processor interface {
	CanProcess(kind string) bool
	Extract(ctx context.Context, r io.Reader) (string, error)
}

// LanguageDetector returns an ISO 639-1 code, or "" when unsure.
type LanguageDetector interface {
	Detect(text string) string
}

type Extractor struct {
	processors []Processor
	detector   LanguageDetector
	workers    int
	log        logger.Logger
}

func NewExtractor(processors []Processor, detector LanguageDetector, workers int, log logger.Logger) *Extractor {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Extractor{processors: processors, detector: detector, workers: workers, log: log}
}

// KindOf guesses the document kind from the file extension.
func KindOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return KindPDF
	case ".png":
		return KindPNG
	case ".jpg", ".jpeg":
		return KindJPEG
	case ".tif", ".tiff":
		return KindTIFF
	case ".bmp":
		return KindBMP
	case ".txt", ".md":
		return KindText
	}
	return KindOther
}

// ExpandPaths resolves glob patterns. A pattern that matches nothing is
// kept as is so the missing file is reported by extraction.
func ExpandPaths(patterns []string) []string {
	var out []string
	for _, p := range patterns {
		matches, _ := filepath.Glob(p)
		if matches == nil {
			matches = []string{p}
		}
		out = append(out, matches...)
	}
	return out
}

// ExtractAll extracts every path concurrently. Results keep the order of
// paths and failures are recorded per file, never returned.
func (e *Extractor) ExtractAll(ctx context.Context, paths []string) []domain.ExtractionResult {
	results := make([]domain.ExtractionResult, len(paths))
	seen := make(map[string]bool, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, path := range paths {
		name := filepath.Base(path)
		results[i] = domain.ExtractionResult{Filename: name, Path: path, Kind: KindOf(path)}
		if seen[name] {
			results[i].Err = fmt.Errorf("%w: %s", ErrDuplicate, name)
			continue
		}
		seen[name] = true
		i := i
		g.Go(func() error {
			e.extractOne(ctx, &results[i])
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Extractor) extractOne(ctx context.Context, res *domain.ExtractionResult) {
	log := e.log.With(logger.String("file", res.Filename), logger.String("kind", res.Kind))
	text, err := e.extractText(ctx, res.Path, res.Kind)
	if err != nil {
		res.Err = err
		log.Warn("extraction failed", logger.Error(err))
		return
	}
	res.Text = strings.TrimSpace(text)
	res.Language = domain.DefaultLanguage
	if res.Text != "" && e.detector != nil {
		if lang := e.detector.Detect(res.Text); lang != "" {
			res.Language = lang
		}
	}
	log.Info("extracted", logger.Int("chars", len(res.Text)), logger.String("language", res.Language))
}

func (e *Extractor) extractText(ctx context.Context, path, kind string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extract %s: panic: %v", filepath.Base(path), r)
		}
	}()
	var proc Processor
	for _, p := range e.processors {
		if p.CanProcess(kind) {
			proc = p
			break
		}
	}
	if proc == nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return proc.Extract(ctx, f)
}

// TextProcessor reads plain text files as they are.
type TextProcessor struct{}

func (TextProcessor) CanProcess(kind string) bool { return kind == KindText }

func (TextProcessor) Extract(_ context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
