package service

import (
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/faskesq-clinical-assist/internal/domain"
)

// Validation warnings shown to the clinician.
const (
	WarnVeryLimited       = "Data yang tersedia sangat terbatas. Rekomendasi mungkin tidak akurat."
	WarnPreliminary       = "Beberapa data penting masih kurang. Rekomendasi bersifat preliminary."
	WarnShortAnamnesis    = "Anamnesis terlalu singkat untuk analisis menyeluruh."
	WarnShortPhysicalExam = "Pemeriksaan fisik terlalu singkat untuk evaluasi lengkap."
	WarnNoDifferentials   = "Tidak ada diagnosis banding yang tersedia untuk diferensiasi."
)

// Data improvement hints.
const (
	HintMainComplaint = "Tambahkan keluhan utama pasien dengan lebih detail"
	HintDiagnosis     = "Sertakan diagnosis atau kondisi yang dicurigai"
	HintAnamnesis     = "Lengkapi anamnesis dengan riwayat penyakit, faktor risiko, dan review of systems"
	HintPhysicalExam  = "Sertakan temuan pemeriksaan fisik lengkap"
	HintDifferentials = "Pertimbangkan diagnosis banding untuk diferensiasi yang lebih baik"
)

// SmartValidator scores partial clinical input and decides which recommendation mode
// the data supports.
type SmartValidator struct {
	rules  ScoringRules
	logger *logrus.Logger
}

// NewSmartValidator creates a validator over the given rules
func NewSmartValidator(rules ScoringRules, logger *logrus.Logger) *SmartValidator {
	if logger == nil {
		logger = logrus.New()
	}
	return &SmartValidator{rules: rules, logger: logger}
}

// Rules returns the scoring rules in use.
func (v *SmartValidator) Rules() ScoringRules {
	return v.rules
}

// Validate builds the ValidationResult for input. It has no side effects other than a
// debug log line.
func (v *SmartValidator) Validate(input *domain.ClinicalInput) *domain.ValidationResult {
	if input == nil {
		input = &domain.ClinicalInput{}
	}

	score := v.rules.ScoreFields(input).Total()
	missing := MissingFields(input)
	mode := v.SelectMode(score, missing)

	result := &domain.ValidationResult{
		IsValid:            score >= v.rules.MinScore(mode),
		Score:              score,
		MissingFields:      missing,
		Warnings:           Warnings(input, score),
		RecommendationMode: mode,
		ConfidenceLevel:    v.ConfidenceFor(score, mode),
	}

	v.logger.WithFields(input.LogFields()).WithFields(logrus.Fields{
		"score":      result.Score,
		"mode":       result.RecommendationMode,
		"confidence": result.ConfidenceLevel,
		"missing":    len(result.MissingFields),
	}).Debug("Clinical data validated")

	return result
}

// SelectMode picks Comprehensive when the score reaches its minimum with at most one
// missing field, Standard when the score reaches the Standard minimum, else Quick.
func (v *SmartValidator) SelectMode(score int, missing []string) domain.RecommendationMode {
	switch {
	case score >= v.rules.MinScore(domain.ModeComprehensive) && len(missing) <= 1:
		return domain.ModeComprehensive
	case score >= v.rules.MinScore(domain.ModeStandard):
		return domain.ModeStandard
	default:
		return domain.ModeQuick
	}
}

// ConfidenceFor normalises score against the minimum of mode.
func (v *SmartValidator) ConfidenceFor(score int, mode domain.RecommendationMode) domain.ConfidenceLevel {
	ratio := float64(score) / float64(v.rules.MinScore(mode))
	switch {
	case ratio >= 0.9:
		return domain.ConfidenceHigh
	case ratio >= 0.7:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

// MissingFields lists the fields considered absent, in field order. The thresholds are
// independent of the scoring thresholds.
func MissingFields(input *domain.ClinicalInput) []string {
	missing := []string{}
	if domain.TextLength(input.MainComplaint) < 5 {
		missing = append(missing, domain.FieldMainComplaint)
	}
	if domain.TextLength(input.Diagnosis) < 3 {
		missing = append(missing, domain.FieldDiagnosis)
	}
	if domain.TextLength(input.Anamnesis) < 10 {
		missing = append(missing, domain.FieldAnamnesis)
	}
	if domain.TextLength(input.PhysicalExam) < 10 {
		missing = append(missing, domain.FieldPhysicalExam)
	}
	if len(input.DifferentialDiagnoses) == 0 {
		missing = append(missing, domain.FieldDifferentialDiagnoses)
	}
	return missing
}

// Warnings produces the clinician-facing warnings for input at the given rounded score.
// The short-text checks apply only to fields that were supplied, measured untrimmed.
func Warnings(input *domain.ClinicalInput, score int) []string {
	warnings := []string{}

	if score < 30 {
		warnings = append(warnings, WarnVeryLimited)
	} else if score < 60 {
		warnings = append(warnings, WarnPreliminary)
	}

	if input.Anamnesis != "" && utf8.RuneCountInString(input.Anamnesis) < 20 {
		warnings = append(warnings, WarnShortAnamnesis)
	}
	if input.PhysicalExam != "" && utf8.RuneCountInString(input.PhysicalExam) < 20 {
		warnings = append(warnings, WarnShortPhysicalExam)
	}
	if input.DifferentialDiagnoses != nil && len(input.DifferentialDiagnoses) == 0 {
		warnings = append(warnings, WarnNoDifferentials)
	}

	return warnings
}

// SuggestDataImprovements returns hints for the fields that would most improve the score.
func SuggestDataImprovements(input *domain.ClinicalInput) []string {
	suggestions := []string{}
	if domain.TextLength(input.MainComplaint) < 10 {
		suggestions = append(suggestions, HintMainComplaint)
	}
	if domain.TextLength(input.Diagnosis) < 5 {
		suggestions = append(suggestions, HintDiagnosis)
	}
	if domain.TextLength(input.Anamnesis) < 30 {
		suggestions = append(suggestions, HintAnamnesis)
	}
	if domain.TextLength(input.PhysicalExam) < 30 {
		suggestions = append(suggestions, HintPhysicalExam)
	}
	if len(input.DifferentialDiagnoses) == 0 {
		suggestions = append(suggestions, HintDifferentials)
	}
	return suggestions
}
