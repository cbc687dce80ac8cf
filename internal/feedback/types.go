// Package feedback stores clinician decisions on recommended examinations. The
// accept/reject history is exported periodically to tune the keyword and scoring tables.
package feedback

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Decision is what the clinician did with a recommended examination.
type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
	DecisionModified Decision = "modified"
)

// ParseDecision accepts any casing of a known decision.
func ParseDecision(s string) (Decision, error) {
	d := Decision(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case DecisionAccepted, DecisionRejected, DecisionModified:
		return d, nil
	}
	return "", fmt.Errorf("unknown feedback decision: %q", s)
}

// Feedback is one clinician decision on one recommended examination. A recommendation
// record and examination pair has at most one entry; saving again updates it.
type Feedback struct {
	ID                  int64     `json:"id,omitempty"`
	RecordID            string    `json:"record_id"`          // Recommendation audit record
	Examination         string    `json:"examination"`        // Examination as suggested
	Mode                string    `json:"mode"`               // Recommendation mode used
	SuggestedPriority   string    `json:"suggested_priority"` // Priority the model assigned
	SuggestedConfidence float64   `json:"suggested_confidence"`
	Decision            Decision  `json:"decision"`
	Replacement         string    `json:"replacement,omitempty"` // Examination ordered instead
	Notes               string    `json:"notes,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Validate checks the fields a store relies on.
func (f *Feedback) Validate() error {
	if strings.TrimSpace(f.RecordID) == "" {
		return fmt.Errorf("record_id is required")
	}
	if strings.TrimSpace(f.Examination) == "" {
		return fmt.Errorf("examination is required")
	}
	d, err := ParseDecision(string(f.Decision))
	if err != nil {
		return err
	}
	f.Decision = d
	return nil
}

// Summary aggregates decisions for reporting.
type Summary struct {
	Total    int64 `json:"total"`
	Accepted int64 `json:"accepted"`
	Rejected int64 `json:"rejected"`
	Modified int64 `json:"modified"`
}

// AcceptanceRate is accepted / total, or 0 when empty.
func (s Summary) AcceptanceRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Accepted) / float64(s.Total)
}

// Store defines the interface for feedback storage operations.
type Store interface {
	// Save stores or updates feedback for a record+examination pair.
	Save(ctx context.Context, feedback *Feedback) error

	// Get returns the feedback for a record+examination pair, or nil when absent.
	Get(ctx context.Context, recordID, examination string) (*Feedback, error)

	// List returns feedback entries, newest first.
	List(ctx context.Context, limit, offset int) ([]*Feedback, error)

	// Count returns the total number of feedback entries.
	Count(ctx context.Context) (int64, error)

	// Summarize counts entries per decision.
	Summarize(ctx context.Context) (*Summary, error)

	// Delete removes a feedback entry by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all feedback to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports feedback from a JSON reader, skipping pairs that already exist.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// FeedbackExport represents the JSON export format.
type FeedbackExport struct {
	Version    string      `json:"version"`
	ExportedAt time.Time   `json:"exported_at"`
	Count      int         `json:"count"`
	Feedback   []*Feedback `json:"feedback"`
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

const exportVersion = "1.0"
