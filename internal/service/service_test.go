package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docsum/internal/batch"
	"docsum/internal/chunker"
	"docsum/internal/domain"
	"docsum/internal/embedding/tfidf"
	"docsum/internal/extract"
	"docsum/internal/llm/extractive"
	"docsum/internal/output"
	"docsum/internal/progress"
	"docsum/internal/rerank"
	"docsum/internal/retriever"
	"docsum/internal/summarizer"
	"docsum/internal/vectorstore/memory"
	"docsum/internal/workerpool"
)

const paper = `Graph neural networks learn representations of nodes. We propose a sparse attention model for citation graphs.
The model is trained on three public datasets. Results show an accuracy gain of four points over the baseline.
Training uses a single GPU for two hours. Future work will study larger graphs and dynamic edges.`

type brokenEmbedder struct{ *tfidf.Embedder }

func (brokenEmbedder) EmbedDocuments(context.Context, []string) ([][]float64, error) {
	return nil, errors.New("embedding service unreachable")
}

func newService(t *testing.T, emb domain.Embedder) *SummaryService {
	t.Helper()
	docPool := workerpool.New("documents", 2, nil)
	secPool := workerpool.New("sections", 4, nil)
	t.Cleanup(func() {
		docPool.Close()
		secPool.Close()
	})
	r := retriever.New(chunker.NewWindowChunker(120, 20), emb, memory.NewStorage(), rerank.NewLexical(), retriever.Options{})
	sum := summarizer.New(summarizer.NewGenerator(r, extractive.New(3), 0), secPool, summarizer.Options{})
	orch := batch.NewOrchestrator(sum, docPool, nil, nil)
	ext := extract.NewExtractor([]extract.Processor{extract.TextProcessor{}}, nil, 2, nil)
	return NewSummaryService(ext, r, orch, nil)
}

func writeFiles(t *testing.T, files map[string]string) []string {
	t.Helper()
	dir := t.TempDir()
	var paths []string
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return paths
}

func TestRunSummarizesSingleDocument(t *testing.T) {
	paths := writeFiles(t, map[string]string{"paper.txt": paper})
	mb := progress.NewMailbox()
	report, err := newService(t, tfidf.NewEmbedder()).Run(context.Background(), paths, mb)
	if err != nil {
		t.Fatal(err)
	}

	var statuses []domain.Status
	var last domain.Event
	for _, e := range mb.Drain() {
		statuses = append(statuses, e.Status)
		last = e
	}
	want := []domain.Status{domain.StatusQueued, domain.StatusProcessing, domain.StatusSummarizing, domain.StatusCompleted}
	if len(statuses) != len(want) {
		t.Fatalf("expected statuses %v, got %v", want, statuses)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("expected statuses %v, got %v", want, statuses)
		}
	}
	if !last.Result.Success || !strings.HasPrefix(last.Result.Summary, "# Summary of paper.txt\n") {
		t.Fatalf("unexpected result %+v", last.Result)
	}
	if !strings.Contains(last.Result.Summary, "## Basic Paper Information") {
		t.Fatalf("expected sections in summary:\n%s", last.Result.Summary)
	}
	if report.Completed() != 1 {
		t.Fatalf("expected one completed document, got %d", report.Completed())
	}
}

func TestRunMixedSubmission(t *testing.T) {
	paths := writeFiles(t, map[string]string{
		"a.txt":     paper,
		"b.txt":     strings.ReplaceAll(paper, "graph", "protein"),
		"empty.txt": "  ",
	})
	mb := progress.NewMailbox()
	store := progress.NewStatusStore()
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	store.Track(names...)

	report, err := newService(t, tfidf.NewEmbedder()).Run(context.Background(), paths, mb)
	if err != nil {
		t.Fatal(err)
	}
	store.Apply(mb.Drain()...)
	if !store.Done() {
		t.Fatalf("expected all files terminal, got %+v", store.Snapshot())
	}
	counts := store.Counts()
	if counts[domain.StatusCompleted] != 2 || counts[domain.StatusSkipped] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
	if report.Skipped() != 1 || report.Completed() != 2 {
		t.Fatalf("unexpected report totals")
	}
}

func TestRunIndexFailureAbortsBatch(t *testing.T) {
	paths := writeFiles(t, map[string]string{"a.txt": paper, "b.txt": paper + " more"})
	mb := progress.NewMailbox()
	_, err := newService(t, brokenEmbedder{tfidf.NewEmbedder()}).Run(context.Background(), paths, mb)
	if !errors.Is(err, ErrSetup) || !errors.Is(err, retriever.ErrIndexUnavailable) {
		t.Fatalf("expected setup error wrapping index failure, got %v", err)
	}
	for _, e := range mb.Drain() {
		if e.Status == domain.StatusSummarizing || e.Status == domain.StatusCompleted {
			t.Fatalf("no document may be summarized after a setup failure, got %s for %s", e.Status, e.Filename)
		}
	}
}

func TestRunExportsSummaries(t *testing.T) {
	paths := writeFiles(t, map[string]string{"paper.txt": paper})
	outDir := t.TempDir()
	svc := newService(t, tfidf.NewEmbedder()).WithExport(output.NewManager(outDir, nil), []string{output.FormatMarkdown})
	if _, err := svc.Run(context.Background(), paths, progress.NewMailbox()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(outDir, "paper.md"))
	if err != nil {
		t.Fatalf("expected exported markdown: %v", err)
	}
	if !strings.HasSuffix(string(data), "\n\n---\n") {
		t.Fatalf("unexpected export %q", data)
	}
}

func TestRunRefusesDuplicateBasenames(t *testing.T) {
	first := writeFiles(t, map[string]string{"a.txt": paper})
	second := writeFiles(t, map[string]string{"a.txt": strings.ReplaceAll(paper, "graph", "protein")})
	mb := progress.NewMailbox()

	report, err := newService(t, tfidf.NewEmbedder()).Run(context.Background(), append(first, second...), mb)
	if !errors.Is(err, ErrSetup) || !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected duplicate name setup error, got %v", err)
	}
	if len(report.Documents) != 0 {
		t.Fatalf("expected no documents to run, got %d", len(report.Documents))
	}
	if events := mb.Drain(); len(events) != 0 {
		t.Fatalf("expected nothing published for a refused submission, got %+v", events)
	}
}

func TestCheckNames(t *testing.T) {
	names, err := CheckNames([]string{"/x/a.pdf", "/y/b.pdf"})
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "a.pdf" || names[1] != "b.pdf" {
		t.Fatalf("unexpected names %v", names)
	}
	if _, err := CheckNames([]string{"/x/a.pdf", "/y/a.pdf"}); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}
