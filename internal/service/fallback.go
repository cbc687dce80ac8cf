package service

import (
	"fmt"
	"strings"

	"github.com/faskesq-clinical-assist/internal/domain"
)

// KeywordRule maps an Indonesian symptom keyword onto a coarse differential.
type KeywordRule struct {
	Keyword    string  `yaml:"keyword" json:"keyword"`
	Diagnosis  string  `yaml:"diagnosis" json:"diagnosis"`
	Confidence float64 `yaml:"confidence" json:"confidence"`
}

// KeywordTable is an ordered list of keyword rules. Matches are emitted in table order.
type KeywordTable []KeywordRule

const (
	generalConditionDiagnosis = "General Medical Condition - Requires Further Evaluation"
	generalConditionReasoning = "Based on general symptoms - further evaluation needed"
	generalConditionScore     = 50
)

// DefaultKeywordTable returns the keyword table used when no rules file overrides it.
func DefaultKeywordTable() KeywordTable {
	return KeywordTable{
		{Keyword: "nyeri dada", Diagnosis: "Chest Pain - Acute Coronary Syndrome", Confidence: 70},
		{Keyword: "demam", Diagnosis: "Fever - Infection", Confidence: 65},
		{Keyword: "sesak", Diagnosis: "Dyspnea - Respiratory Disorder", Confidence: 75},
		{Keyword: "sakit kepala", Diagnosis: "Headache - Primary vs Secondary", Confidence: 60},
		{Keyword: "diare", Diagnosis: "Diarrhea - Infectious vs Non-infectious", Confidence: 65},
		{Keyword: "muntah", Diagnosis: "Vomiting - GI vs Systemic", Confidence: 60},
		{Keyword: "nyeri perut", Diagnosis: "Abdominal Pain - Surgical vs Medical", Confidence: 70},
		{Keyword: "pusing", Diagnosis: "Dizziness - Vestibular vs Cardiovascular", Confidence: 65},
	}
}

// FallbackDiagnoser guesses differentials from symptom keywords when the model is
// unavailable or returns nothing.
type FallbackDiagnoser struct {
	table KeywordTable
}

// NewFallbackDiagnoser creates a diagnoser over table. A nil table uses the default.
func NewFallbackDiagnoser(table KeywordTable) *FallbackDiagnoser {
	if len(table) == 0 {
		table = DefaultKeywordTable()
	}
	return &FallbackDiagnoser{table: table}
}

// Diagnose scans the lower-cased concatenation of anamnesis and physical examination.
// It always returns at least one diagnosis.
func (f *FallbackDiagnoser) Diagnose(anamnesis, physicalExam string) []domain.DifferentialDiagnosis {
	text := strings.ToLower(anamnesis + " " + physicalExam)

	var out []domain.DifferentialDiagnosis
	for _, rule := range f.table {
		if !strings.Contains(text, strings.ToLower(rule.Keyword)) {
			continue
		}
		confidence := domain.ClampConfidence(rule.Confidence)
		out = append(out, domain.DifferentialDiagnosis{
			Diagnosis:  rule.Diagnosis,
			Confidence: confidence,
			Priority:   domain.PriorityForConfidence(confidence),
			Reasoning:  fmt.Sprintf("Identified keyword: %q in clinical presentation", rule.Keyword),
		})
	}

	if len(out) == 0 {
		return []domain.DifferentialDiagnosis{{
			Diagnosis:  generalConditionDiagnosis,
			Confidence: generalConditionScore,
			Priority:   domain.PriorityMedium,
			Reasoning:  generalConditionReasoning,
		}}
	}
	return out
}
