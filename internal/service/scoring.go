package service

import (
	"math"

	"github.com/faskesq-clinical-assist/internal/domain"
)

// FieldWeights is the maximum contribution of each clinical field to the completeness score.
type FieldWeights struct {
	MainComplaint         float64 `yaml:"mainComplaint"`
	Diagnosis             float64 `yaml:"diagnosis"`
	Anamnesis             float64 `yaml:"anamnesis"`
	PhysicalExam          float64 `yaml:"physicalExam"`
	DifferentialDiagnoses float64 `yaml:"differentialDiagnoses"`
}

// ScoringRules holds the constant tables used by the validator.
type ScoringRules struct {
	Weights   FieldWeights                      `yaml:"weights"`
	MinScores map[domain.RecommendationMode]int `yaml:"minScores"`
}

// DefaultScoringRules returns the clinic's standard weights: 30/25/20/15/10 and minimum
// scores of 30, 60 and 80 for Quick, Standard and Comprehensive.
func DefaultScoringRules() ScoringRules {
	return ScoringRules{
		Weights: FieldWeights{
			MainComplaint:         30,
			Diagnosis:             25,
			Anamnesis:             20,
			PhysicalExam:          15,
			DifferentialDiagnoses: 10,
		},
		MinScores: map[domain.RecommendationMode]int{
			domain.ModeQuick:         30,
			domain.ModeStandard:      60,
			domain.ModeComprehensive: 80,
		},
	}
}

// MinScore returns the minimum score for mode, falling back to the default table.
func (r ScoringRules) MinScore(mode domain.RecommendationMode) int {
	if s, ok := r.MinScores[mode]; ok && s > 0 {
		return s
	}
	return DefaultScoringRules().MinScores[mode]
}

// FieldScores is the per-field breakdown of a completeness score.
type FieldScores struct {
	MainComplaint         float64 `json:"mainComplaint"`
	Diagnosis             float64 `json:"diagnosis"`
	Anamnesis             float64 `json:"anamnesis"`
	PhysicalExam          float64 `json:"physicalExam"`
	DifferentialDiagnoses float64 `json:"differentialDiagnoses"`
}

// Total sums the sub-scores and rounds once. Every threshold comparison downstream
// uses this rounded value.
func (s FieldScores) Total() int {
	sum := s.MainComplaint + s.Diagnosis + s.Anamnesis + s.PhysicalExam + s.DifferentialDiagnoses
	return int(math.Round(sum))
}

// ScoreFields computes the weighted completeness sub-scores of input.
func (r ScoringRules) ScoreFields(input *domain.ClinicalInput) FieldScores {
	w := r.Weights
	return FieldScores{
		MainComplaint:         scoreMainComplaint(input.MainComplaint, w.MainComplaint),
		Diagnosis:             scoreDiagnosis(input.Diagnosis, w.Diagnosis),
		Anamnesis:             scoreNarrative(input.Anamnesis, w.Anamnesis),
		PhysicalExam:          scoreNarrative(input.PhysicalExam, w.PhysicalExam),
		DifferentialDiagnoses: scoreDifferentials(input.DifferentialDiagnoses, w.DifferentialDiagnoses),
	}
}

func scoreMainComplaint(s string, weight float64) float64 {
	switch n := domain.TextLength(s); {
	case n > 10:
		return weight
	case n > 0:
		return weight * 0.5
	default:
		return 0
	}
}

func scoreDiagnosis(s string, weight float64) float64 {
	if domain.TextLength(s) > 3 {
		return weight
	}
	return 0
}

// scoreNarrative scores the free-text anamnesis and physical examination fields.
func scoreNarrative(s string, weight float64) float64 {
	switch n := domain.TextLength(s); {
	case n > 50:
		return weight
	case n > 20:
		return weight * 0.7
	case n > 0:
		return weight * 0.3
	default:
		return 0
	}
}

func scoreDifferentials(diffs []domain.DifferentialDiagnosis, weight float64) float64 {
	valid := 0
	for _, d := range diffs {
		if IsUsableDifferential(d) {
			valid++
		}
	}
	return math.Min(weight, float64(valid)*(weight/3))
}

// IsUsableDifferential reports whether a differential carries enough content to count
// toward completeness.
func IsUsableDifferential(d domain.DifferentialDiagnosis) bool {
	return domain.TextLength(d.Diagnosis) > 2 &&
		d.Confidence > 0 &&
		domain.TextLength(d.Reasoning) > 10
}
