package domain

import (
	"time"
)

// ExaminationRecommendation is one supporting examination suggested by the model.
type ExaminationRecommendation struct {
	Examination           string       `json:"examination"`
	Category              ExamCategory `json:"category"`
	Priority              Priority     `json:"priority"`
	Confidence            float64      `json:"confidence"`
	Reasoning             string       `json:"reasoning"`
	DifferentialDiagnoses []string     `json:"differentialDiagnoses"`
	Alternatives          []string     `json:"alternatives,omitempty"`
	Contraindications     []string     `json:"contraindications,omitempty"`
}

// Normalize applies shape validation to a recommendation received from the model:
// confidence is clamped, unknown categories become Other and unknown priorities are
// derived from confidence.
func (r *ExaminationRecommendation) Normalize() {
	r.Confidence = ClampConfidence(r.Confidence)
	if !r.Category.IsValid() {
		r.Category = CategoryOther
	}
	if p, err := ParsePriority(string(r.Priority)); err == nil {
		r.Priority = p
	} else {
		r.Priority = PriorityForConfidence(r.Confidence)
	}
	if r.DifferentialDiagnoses == nil {
		r.DifferentialDiagnoses = []string{}
	}
}

// ExaminationsOutput is the router result. The model controls Recommendations only; the
// remaining fields are copied from the ValidationResult.
type ExaminationsOutput struct {
	Recommendations    []ExaminationRecommendation `json:"recommendations"`
	DataCompleteness   int                         `json:"dataCompleteness"`
	RecommendationMode RecommendationMode          `json:"recommendationMode"`
	ConfidenceLevel    ConfidenceLevel             `json:"confidenceLevel"`
	MissingData        []string                    `json:"missingData"`
	ClinicalNotes      string                      `json:"clinicalNotes,omitempty"`
	RecordID           string                      `json:"recordId,omitempty"`
}

// ProgressiveRecommendation is the output of the progressive disclosure filter.
type ProgressiveRecommendation struct {
	Recommendations            []ExaminationRecommendation `json:"recommendations"`
	HiddenRecommendations      int                         `json:"hiddenRecommendations"`
	ConfidenceWarning          *string                     `json:"confidenceWarning"`
	DataImprovementSuggestions []string                    `json:"dataImprovementSuggestions"`
	CanShowMore                bool                        `json:"canShowMore"`
}

// RecommendationRecord is the audit row written for every routed recommendation. It
// holds counts and routing metadata only, never clinical text.
type RecommendationRecord struct {
	ID                  string             `json:"id"`
	RequestID           string             `json:"request_id,omitempty"`
	RequestType         string             `json:"request_type"`
	Template            string             `json:"template"`
	Mode                RecommendationMode `json:"mode"`
	Score               int                `json:"score"`
	ConfidenceLevel     ConfidenceLevel    `json:"confidence_level"`
	RecommendationCount int                `json:"recommendation_count"`
	Model               string             `json:"model,omitempty"`
	ProcessingTimeMs    int64              `json:"processing_time_ms"`
	CreatedAt           time.Time          `json:"created_at"`
}
