package domain

import "time"

// DefaultLanguage is used when detection fails or finds nothing.
const DefaultLanguage = "en"

// ExtractionResult is the outcome of extracting one uploaded file.
// ChunkCount stays zero until the retriever indexes the document.
type ExtractionResult struct {
	Filename   string
	Path       string
	Kind       string
	Text       string
	Language   string
	Err        error
	ChunkCount int
}

// Summarizable reports whether the document can enter summarization.
func (r ExtractionResult) Summarizable() bool {
	return r.Text != "" && r.Err == nil && r.ChunkCount > 0
}

// Lang returns the detected language or DefaultLanguage.
func (r ExtractionResult) Lang() string {
	if r.Language == "" {
		return DefaultLanguage
	}
	return r.Language
}

// Section is one entry of the summary catalog.
type Section struct {
	Key          string
	DisplayName  string
	Instructions string
}

// SectionResult is what the generator produced for one (document, section)
// pair. At most one of Text and ErrorReason is set; both empty means the
// model had nothing to say.
type SectionResult struct {
	Key         string        `json:"key"`
	Text        string        `json:"text,omitempty"`
	ErrorReason string        `json:"error_reason,omitempty"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Failed reports whether the section ended with an error reason.
func (r SectionResult) Failed() bool { return r.ErrorReason != "" }

// DocumentSummary is the compiled output for one document.
type DocumentSummary struct {
	Filename    string
	Text        string
	Sections    []SectionResult
	GeneratedAt time.Time
}

// Failures returns the sections that ended with an error, in catalog order.
func (s DocumentSummary) Failures() []SectionResult {
	var out []SectionResult
	for _, r := range s.Sections {
		if r.Failed() {
			out = append(out, r)
		}
	}
	return out
}
