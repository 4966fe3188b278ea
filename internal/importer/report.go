package importer

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxReportedErrors bounds the row messages returned to callers.
const MaxReportedErrors = 50

// Outcome classifies a finished import run.
type Outcome string

const (
	OutcomeSuccess Outcome = "success" // every row stored
	OutcomePartial Outcome = "partial" // some rows stored, some failed
	OutcomeFailed  Outcome = "failed"  // rows present, none stored
	OutcomeEmpty   Outcome = "empty"   // no rows to import
)

// BatchResult summarizes one import run.
type BatchResult struct {
	BatchID  uuid.UUID     `json:"batchId"`
	Type     ImportType    `json:"type"`
	FileName string        `json:"fileName,omitempty"`
	Total    int           `json:"total"`
	Success  int           `json:"success"`
	Failed   int           `json:"failed"`
	Errors   []string      `json:"errors"`
	Outcome  Outcome       `json:"outcome"`
	Duration time.Duration `json:"-"`
}

// Report builds a BatchResult from the run counters, keeping only the first
// MaxReportedErrors messages.
func Report(success, failed int, errs []string) BatchResult {
	if len(errs) > MaxReportedErrors {
		errs = errs[:MaxReportedErrors]
	}
	kept := make([]string, len(errs))
	copy(kept, errs)

	return BatchResult{
		Total:   success + failed,
		Success: success,
		Failed:  failed,
		Errors:  kept,
		Outcome: classify(success, failed),
	}
}

func classify(success, failed int) Outcome {
	switch {
	case success == 0 && failed == 0:
		return OutcomeEmpty
	case success == 0:
		return OutcomeFailed
	case failed == 0:
		return OutcomeSuccess
	default:
		return OutcomePartial
	}
}

// OK reports whether at least one row was stored.
func (r BatchResult) OK() bool {
	return r.Outcome == OutcomeSuccess || r.Outcome == OutcomePartial
}

// Message is the operator-facing summary of the run.
func (r BatchResult) Message() string {
	switch r.Outcome {
	case OutcomeSuccess:
		return fmt.Sprintf("Import succeeded: %d rows imported", r.Success)
	case OutcomePartial:
		return fmt.Sprintf("Import partially succeeded: %d imported, %d failed", r.Success, r.Failed)
	case OutcomeFailed:
		return fmt.Sprintf("All rows failed (%d rows); fix the listed rows and upload again", r.Failed)
	default:
		return "No rows found to import; check that the first sheet has a header row and data"
	}
}

// Headline is the short error title for failed and empty runs.
func (r BatchResult) Headline() string {
	switch r.Outcome {
	case OutcomeFailed:
		return "Import failed"
	case OutcomeEmpty:
		return "Empty file"
	default:
		return ""
	}
}
