package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"docsum/internal/domain"
)

// Reasons recorded on failed sections.
const (
	ReasonNoDocuments = "no documents found"
	ReasonMalformed   = "malformed response"
)

// ChunkSource answers scoped relevance queries. *retriever.Retriever
// implements it.
type ChunkSource interface {
	RelevantChunks(ctx context.Context, filename, query, rerankQuery string, chunkCount int) ([]string, error)
}

// Document identifies the indexed document a section is generated for.
type Document struct {
	Filename   string
	Language   string
	ChunkCount int
}

// Generator produces one section of one document: a retrieval round trip
// followed by a language model call.
type Generator struct {
	chunks      ChunkSource
	model       domain.LanguageModel
	callTimeout time.Duration
}

func NewGenerator(chunks ChunkSource, model domain.LanguageModel, callTimeout time.Duration) *Generator {
	return &Generator{chunks: chunks, model: model, callTimeout: callTimeout}
}

// Query is the retrieval query for a section of a document.
func Query(section domain.Section, filename string) string {
	return fmt.Sprintf("Analyze the %s section from the document titled '%s'.", section.DisplayName, filename)
}

// SystemInstruction asks the model to answer in the document's language.
func SystemInstruction(lang string) string {
	return fmt.Sprintf("You are an expert summarization AI. Please respond in %s.", LanguageName(lang))
}

// LanguageName turns an ISO 639-1 code into an English language name.
// Unknown codes fall back to English.
func LanguageName(code string) string {
	if code == "" {
		code = domain.DefaultLanguage
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "English"
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return "English"
}

// Generate never returns an error: every failure, panics included, ends up
// in the result's ErrorReason.
func (g *Generator) Generate(ctx context.Context, doc Document, section domain.Section) (res domain.SectionResult) {
	start := time.Now()
	res.Key = section.Key
	defer func() {
		if r := recover(); r != nil {
			res.Text = ""
			res.ErrorReason = fmt.Sprintf("panic: %v", r)
		}
		res.Elapsed = time.Since(start)
	}()

	query := Query(section, doc.Filename)
	chunks, err := g.chunks.RelevantChunks(ctx, doc.Filename, query, query, doc.ChunkCount)
	if err != nil {
		res.ErrorReason = err.Error()
		return res
	}
	if len(chunks) == 0 {
		res.ErrorReason = ReasonNoDocuments
		return res
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if g.callTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, g.callTimeout)
	}
	defer cancel()
	text, err := g.model.Complete(callCtx, SystemInstruction(doc.Language), section.Instructions, chunks)
	switch {
	case errors.Is(err, domain.ErrMalformedResponse):
		res.ErrorReason = ReasonMalformed
	case err != nil:
		res.ErrorReason = err.Error()
	case strings.TrimSpace(text) == "":
		res.ErrorReason = ReasonMalformed
	default:
		res.Text = strings.TrimSpace(text)
	}
	return res
}
