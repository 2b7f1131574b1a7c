package domain

import "time"

// Status is the processing state of one file.
type Status string

const (
	StatusWaiting         Status = "waiting"
	StatusQueued          Status = "queued"
	StatusProcessing      Status = "processing"
	StatusSummarizing     Status = "summarizing"
	StatusCompleted       Status = "completed"
	StatusError           Status = "error"
	StatusSkipped         Status = "skipped"
	StatusExtractionError Status = "extraction_error"
	StatusChunkingError   Status = "chunking_error"
)

func (s Status) rank() int {
	switch s {
	case StatusWaiting:
		return 0
	case StatusQueued:
		return 1
	case StatusProcessing:
		return 2
	case StatusSummarizing:
		return 3
	case StatusCompleted, StatusError, StatusSkipped, StatusExtractionError, StatusChunkingError:
		return 4
	}
	return -1
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool { return s.rank() >= 0 }

// Terminal reports whether no further automatic transition follows s.
func (s Status) Terminal() bool { return s.rank() == 4 }

// Busy reports whether work is pending for the file; observers disable
// interaction while a file is busy.
func (s Status) Busy() bool { return s.Valid() && !s.Terminal() }

// CanTransition reports whether moving from s to next is allowed.
// Statuses only move forward; a reset to waiting is always allowed.
func (s Status) CanTransition(next Status) bool {
	if !next.Valid() {
		return false
	}
	if next == StatusWaiting {
		return true
	}
	return next.rank() > s.rank()
}

// Result is attached to terminal events.
type Result struct {
	Success  bool            `json:"success"`
	Summary  string          `json:"summary,omitempty"`
	Error    string          `json:"error,omitempty"`
	Failures []SectionResult `json:"failures,omitempty"`
}

// Event is one status transition for one file.
type Event struct {
	Filename string    `json:"filename"`
	Status   Status    `json:"status"`
	Result   *Result   `json:"result,omitempty"`
	At       time.Time `json:"at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(filename string, status Status, result *Result) Event {
	return Event{Filename: filename, Status: status, Result: result, At: time.Now()}
}
