package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

// DifferentialDiagnosis is one candidate diagnosis, either entered by the clinician or
// suggested by the model or the keyword fallback.
type DifferentialDiagnosis struct {
	Diagnosis  string   `json:"diagnosis" yaml:"diagnosis"`
	Confidence float64  `json:"confidence" yaml:"confidence"`
	Priority   Priority `json:"priority" yaml:"priority"`
	Reasoning  string   `json:"reasoning" yaml:"reasoning"`
	ICD10Code  string   `json:"icd10Code,omitempty" yaml:"icd10Code,omitempty"`
}

// NewDifferentialDiagnosis clamps the confidence and derives a priority when none is given.
func NewDifferentialDiagnosis(diagnosis string, confidence float64, priority Priority, reasoning string) DifferentialDiagnosis {
	confidence = ClampConfidence(confidence)
	if !priority.IsValid() {
		priority = PriorityForConfidence(confidence)
	}
	return DifferentialDiagnosis{
		Diagnosis:  diagnosis,
		Confidence: confidence,
		Priority:   priority,
		Reasoning:  reasoning,
	}
}

// Normalize clamps the confidence and repairs an unknown priority in place.
func (d *DifferentialDiagnosis) Normalize() {
	d.Confidence = ClampConfidence(d.Confidence)
	if p, err := ParsePriority(string(d.Priority)); err == nil {
		d.Priority = p
	} else {
		d.Priority = PriorityForConfidence(d.Confidence)
	}
}

// ClinicalContext carries optional patient context used to tailor prompts.
type ClinicalContext struct {
	PatientAge           *int           `json:"patientAge,omitempty"`
	PatientGender        Gender         `json:"patientGender,omitempty"`
	Specialization       Specialization `json:"specialization,omitempty"`
	Urgency              Urgency        `json:"urgency,omitempty"`
	PreviousExaminations []string       `json:"previousExaminations,omitempty"`
}

// UrgencyOrDefault returns the urgency, defaulting to Routine.
func (c *ClinicalContext) UrgencyOrDefault() Urgency {
	if c == nil || !c.Urgency.IsValid() {
		return UrgencyRoutine
	}
	return c.Urgency
}

// ClinicalInput is the partial clinical data entered so far. Every field is optional.
// A nil DifferentialDiagnoses means the caller did not supply the field at all; an empty
// non-nil slice means the caller supplied an empty list.
type ClinicalInput struct {
	MainComplaint         string                  `json:"mainComplaint,omitempty"`
	Diagnosis             string                  `json:"diagnosis,omitempty"`
	Anamnesis             string                  `json:"anamnesis,omitempty"`
	PhysicalExam          string                  `json:"physicalExam,omitempty"`
	DifferentialDiagnoses []DifferentialDiagnosis `json:"differentialDiagnoses,omitempty"`
	Context               *ClinicalContext        `json:"context,omitempty"`
}

// TextLength is the rune count of the trimmed text.
func TextLength(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// LogFields returns only lengths, never clinical text.
func (c *ClinicalInput) LogFields() logrus.Fields {
	return logrus.Fields{
		"main_complaint_len": TextLength(c.MainComplaint),
		"diagnosis_len":      TextLength(c.Diagnosis),
		"anamnesis_len":      TextLength(c.Anamnesis),
		"physical_exam_len":  TextLength(c.PhysicalExam),
		"differentials":      len(c.DifferentialDiagnoses),
	}
}

// ValidationResult is the outcome of scoring a ClinicalInput. It is never mutated after
// it is returned.
type ValidationResult struct {
	IsValid            bool               `json:"isValid"`
	Score              int                `json:"score"`
	MissingFields      []string           `json:"missingFields"`
	Warnings           []string           `json:"warnings"`
	RecommendationMode RecommendationMode `json:"recommendationMode"`
	ConfidenceLevel    ConfidenceLevel    `json:"confidenceLevel"`
}

// ExaminationRequest is the tagged request accepted by the recommendation router. The
// set of implementations is closed: QuickRequest, StandardRequest and
// ComprehensiveRequest.
type ExaminationRequest interface {
	// ClinicalInput projects the request onto the fields that are scored.
	ClinicalInput() ClinicalInput
	// ClinicalContext returns the optional patient context.
	ClinicalContext() *ClinicalContext
	isExaminationRequest()
}

// QuickRequest carries only the main complaint and an optional working diagnosis.
type QuickRequest struct {
	MainComplaint string           `json:"mainComplaint"`
	Diagnosis     string           `json:"diagnosis,omitempty"`
	Context       *ClinicalContext `json:"context,omitempty"`
}

// StandardRequest carries anamnesis and physical examination, optionally with
// differentials.
type StandardRequest struct {
	MainComplaint         string                  `json:"mainComplaint,omitempty"`
	Diagnosis             string                  `json:"diagnosis,omitempty"`
	Anamnesis             string                  `json:"anamnesis"`
	PhysicalExam          string                  `json:"physicalExam"`
	DifferentialDiagnoses []DifferentialDiagnosis `json:"differentialDiagnoses,omitempty"`
	Context               *ClinicalContext        `json:"context,omitempty"`
}

// ComprehensiveRequest carries the full picture, including supporting findings.
type ComprehensiveRequest struct {
	MainComplaint         string                  `json:"mainComplaint,omitempty"`
	Diagnosis             string                  `json:"diagnosis,omitempty"`
	Anamnesis             string                  `json:"anamnesis"`
	PhysicalExam          string                  `json:"physicalExam"`
	DifferentialDiagnoses []DifferentialDiagnosis `json:"differentialDiagnoses"`
	SupportingFindings    string                  `json:"supportingFindings,omitempty"`
	Context               *ClinicalContext        `json:"context,omitempty"`
}

func (r *QuickRequest) ClinicalInput() ClinicalInput {
	return ClinicalInput{
		MainComplaint: r.MainComplaint,
		Diagnosis:     r.Diagnosis,
		Context:       r.Context,
	}
}

func (r *QuickRequest) ClinicalContext() *ClinicalContext { return r.Context }
func (r *QuickRequest) isExaminationRequest()             {}

func (r *StandardRequest) ClinicalInput() ClinicalInput {
	return ClinicalInput{
		MainComplaint:         r.MainComplaint,
		Diagnosis:             r.Diagnosis,
		Anamnesis:             r.Anamnesis,
		PhysicalExam:          r.PhysicalExam,
		DifferentialDiagnoses: r.DifferentialDiagnoses,
		Context:               r.Context,
	}
}

func (r *StandardRequest) ClinicalContext() *ClinicalContext { return r.Context }
func (r *StandardRequest) isExaminationRequest()             {}

func (r *ComprehensiveRequest) ClinicalInput() ClinicalInput {
	return ClinicalInput{
		MainComplaint:         r.MainComplaint,
		Diagnosis:             r.Diagnosis,
		Anamnesis:             r.Anamnesis,
		PhysicalExam:          r.PhysicalExam,
		DifferentialDiagnoses: r.DifferentialDiagnoses,
		Context:               r.Context,
	}
}

func (r *ComprehensiveRequest) ClinicalContext() *ClinicalContext { return r.Context }
func (r *ComprehensiveRequest) isExaminationRequest()             {}

// ExaminationRequestEnvelope is the wire form of an ExaminationRequest: a "type"
// discriminator plus the union of all variant fields.
type ExaminationRequestEnvelope struct {
	Type                  string                  `json:"type"`
	MainComplaint         string                  `json:"mainComplaint,omitempty"`
	Diagnosis             string                  `json:"diagnosis,omitempty"`
	Anamnesis             string                  `json:"anamnesis,omitempty"`
	PhysicalExam          string                  `json:"physicalExam,omitempty"`
	DifferentialDiagnoses []DifferentialDiagnosis `json:"differentialDiagnoses,omitempty"`
	SupportingFindings    string                  `json:"supportingFindings,omitempty"`
	Context               *ClinicalContext        `json:"context,omitempty"`
}

// Request converts the envelope into its variant. An empty type is inferred from the
// fields present: anamnesis and physical exam select Standard, otherwise Quick.
func (e *ExaminationRequestEnvelope) Request() (ExaminationRequest, error) {
	kind := strings.ToLower(strings.TrimSpace(e.Type))
	if kind == "" {
		if strings.TrimSpace(e.Anamnesis) != "" || strings.TrimSpace(e.PhysicalExam) != "" {
			kind = "standard"
		} else {
			kind = "quick"
		}
	}

	switch kind {
	case "quick":
		if strings.TrimSpace(e.MainComplaint) == "" {
			return nil, NewValidationError("mainComplaint", "main complaint is required for a quick request", e.MainComplaint)
		}
		return &QuickRequest{MainComplaint: e.MainComplaint, Diagnosis: e.Diagnosis, Context: e.Context}, nil
	case "standard":
		return &StandardRequest{
			MainComplaint:         e.MainComplaint,
			Diagnosis:             e.Diagnosis,
			Anamnesis:             e.Anamnesis,
			PhysicalExam:          e.PhysicalExam,
			DifferentialDiagnoses: e.DifferentialDiagnoses,
			Context:               e.Context,
		}, nil
	case "comprehensive":
		diffs := e.DifferentialDiagnoses
		if diffs == nil {
			diffs = []DifferentialDiagnosis{}
		}
		return &ComprehensiveRequest{
			MainComplaint:         e.MainComplaint,
			Diagnosis:             e.Diagnosis,
			Anamnesis:             e.Anamnesis,
			PhysicalExam:          e.PhysicalExam,
			DifferentialDiagnoses: diffs,
			SupportingFindings:    e.SupportingFindings,
			Context:               e.Context,
		}, nil
	default:
		return nil, NewValidationError("type", "unknown request type", e.Type)
	}
}
