package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"
)

// PDFProcessor extracts the embedded text layer of a PDF, page by page.
// Scanned PDFs without a text layer yield empty text.
type PDFProcessor struct {
	pageWorkers int
}

func NewPDFProcessor(pageWorkers int) *PDFProcessor {
	if pageWorkers <= 0 {
		pageWorkers = 4
	}
	return &PDFProcessor{pageWorkers: pageWorkers}
}

func (p *PDFProcessor) CanProcess(kind string) bool { return kind == KindPDF }

func (p *PDFProcessor) Extract(ctx context.Context, r io.Reader) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	numPages := pdfReader.NumPage()
	pages := make([]string, numPages)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.pageWorkers)
	for i := 1; i <= numPages; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			page := pdfReader.Page(i)
			if page.V.IsNull() {
				return nil
			}
			text, err := page.GetPlainText(nil)
			if err != nil {
				return fmt.Errorf("page %d: %w", i, err)
			}
			pages[i-1] = strings.TrimSpace(text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	var b strings.Builder
	for _, text := range pages {
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}
	return b.String(), nil
}
