package batch

import (
	"time"

	"docsum/internal/domain"
)

// DocumentReport is the outcome of one document in a batch.
type DocumentReport struct {
	Filename string
	Status   domain.Status
	Summary  *domain.DocumentSummary
	Error    string
	Duration time.Duration
}

// Report summarizes a finished batch. Documents keep the input order.
type Report struct {
	ID        string
	Documents []DocumentReport
	Started   time.Time
	Elapsed   time.Duration
}

// Completed is the number of documents that produced a summary.
func (r Report) Completed() int { return r.count(func(s domain.Status) bool { return s == domain.StatusCompleted }) }

// Skipped is the number of documents with no extractable text.
func (r Report) Skipped() int { return r.count(func(s domain.Status) bool { return s == domain.StatusSkipped }) }

// Failed counts every other terminal outcome.
func (r Report) Failed() int {
	return r.count(func(s domain.Status) bool {
		return s == domain.StatusError || s == domain.StatusExtractionError || s == domain.StatusChunkingError
	})
}

// Empty reports whether no summary was generated.
func (r Report) Empty() bool { return r.Completed() == 0 }

// Summaries returns the completed summaries in input order.
func (r Report) Summaries() []domain.DocumentSummary {
	var out []domain.DocumentSummary
	for _, d := range r.Documents {
		if d.Summary != nil {
			out = append(out, *d.Summary)
		}
	}
	return out
}

func (r Report) count(match func(domain.Status) bool) int {
	n := 0
	for _, d := range r.Documents {
		if match(d.Status) {
			n++
		}
	}
	return n
}
