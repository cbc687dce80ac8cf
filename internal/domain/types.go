// Package domain contains the core clinical entities used by the FaskesQ clinical-assist
// service: the partial clinical input a clinician has entered, the completeness validation
// derived from it, and the supporting-examination recommendations drafted by the model.
package domain

import (
	"errors"
	"strings"
)

// Priority is the clinical priority of a diagnosis or a recommended examination.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// RecommendationMode governs which prompt template and depth of reasoning is requested
// from the model.
type RecommendationMode string

const (
	ModeQuick         RecommendationMode = "Quick"
	ModeStandard      RecommendationMode = "Standard"
	ModeComprehensive RecommendationMode = "Comprehensive"
)

// ConfidenceLevel is the qualitative confidence bucket attached to a validation result.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "High"
	ConfidenceMedium ConfidenceLevel = "Medium"
	ConfidenceLow    ConfidenceLevel = "Low"
)

// ExamCategory is the medical category of a supporting examination.
type ExamCategory string

const (
	CategoryLaboratory  ExamCategory = "Laboratory"
	CategoryRadiology   ExamCategory = "Radiology"
	CategoryCardiology  ExamCategory = "Cardiology"
	CategoryPulmonology ExamCategory = "Pulmonology"
	CategoryNeurology   ExamCategory = "Neurology"
	CategoryOther       ExamCategory = "Other"
)

// Gender of the patient as understood by the prompt templates.
type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Specialization is the clinical perspective the recommendation is requested from.
type Specialization string

const (
	SpecializationGeneral   Specialization = "General"
	SpecializationInternal  Specialization = "Internal"
	SpecializationPediatric Specialization = "Pediatric"
	SpecializationSurgical  Specialization = "Surgical"
	SpecializationEmergency Specialization = "Emergency"
	SpecializationObstetric Specialization = "Obstetric"
)

// Urgency of the clinical encounter.
type Urgency string

const (
	UrgencyRoutine   Urgency = "Routine"
	UrgencyUrgent    Urgency = "Urgent"
	UrgencyEmergency Urgency = "Emergency"
)

// Clinical field names, in the order they are reported as missing.
const (
	FieldMainComplaint         = "mainComplaint"
	FieldDiagnosis             = "diagnosis"
	FieldAnamnesis             = "anamnesis"
	FieldPhysicalExam          = "physicalExam"
	FieldDifferentialDiagnoses = "differentialDiagnoses"
)

// ClinicalFields lists every scored field in reporting order.
var ClinicalFields = []string{
	FieldMainComplaint,
	FieldDiagnosis,
	FieldAnamnesis,
	FieldPhysicalExam,
	FieldDifferentialDiagnoses,
}

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidPriority   = errors.New("invalid priority")
	ErrInvalidMode       = errors.New("invalid recommendation mode")
	ErrInvalidConfidence = errors.New("invalid confidence level")
	ErrEmptyModelOutput  = errors.New("model returned no content")
)

// IsValid reports whether p is one of the three known priorities.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

func (p Priority) String() string {
	return string(p)
}

// Ordinal maps a priority onto its sort rank. Lower ranks sort first; unknown
// priorities rank after Low.
func (p Priority) Ordinal() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// ParsePriority accepts any casing of High/Medium/Low.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh, nil
	case "medium":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	default:
		return "", ErrInvalidPriority
	}
}

// PriorityForConfidence is the single confidence-to-priority cut point table shared by
// the fallback diagnoser, diagnosis integration and recommendation normalisation.
func PriorityForConfidence(confidence float64) Priority {
	switch {
	case confidence >= 80:
		return PriorityHigh
	case confidence >= 60:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// ClampConfidence keeps a confidence value inside [0, 100].
func ClampConfidence(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 100 {
		return 100
	}
	return confidence
}

// IsValid reports whether m is a known recommendation mode.
func (m RecommendationMode) IsValid() bool {
	switch m {
	case ModeQuick, ModeStandard, ModeComprehensive:
		return true
	default:
		return false
	}
}

func (m RecommendationMode) String() string {
	return string(m)
}

// IsValid reports whether c is a known confidence bucket.
func (c ConfidenceLevel) IsValid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	default:
		return false
	}
}

func (c ConfidenceLevel) String() string {
	return string(c)
}

// IsValid reports whether c is a known examination category.
func (c ExamCategory) IsValid() bool {
	switch c {
	case CategoryLaboratory, CategoryRadiology, CategoryCardiology,
		CategoryPulmonology, CategoryNeurology, CategoryOther:
		return true
	default:
		return false
	}
}

// IsValid reports whether g is a known gender value.
func (g Gender) IsValid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	default:
		return false
	}
}

// IsValid reports whether s is a known specialization.
func (s Specialization) IsValid() bool {
	switch s {
	case SpecializationGeneral, SpecializationInternal, SpecializationPediatric,
		SpecializationSurgical, SpecializationEmergency, SpecializationObstetric:
		return true
	default:
		return false
	}
}

// IsValid reports whether u is a known urgency.
func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyRoutine, UrgencyUrgent, UrgencyEmergency:
		return true
	default:
		return false
	}
}
