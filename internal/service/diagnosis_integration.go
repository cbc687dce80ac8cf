package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/faskesq-clinical-assist/internal/domain"
)

// DiagnosisIntegrationConfig controls how model differentials are post-processed.
type DiagnosisIntegrationConfig struct {
	EnableFallback      bool    `json:"enableFallback" yaml:"enableFallback"`
	ConfidenceThreshold float64 `json:"confidenceThreshold" yaml:"confidenceThreshold"`
	MaxDiagnoses        int     `json:"maxDiagnoses" yaml:"maxDiagnoses"`
	IncludeReasoning    bool    `json:"includeReasoning" yaml:"includeReasoning"`
}

// DefaultDiagnosisIntegrationConfig returns the defaults used when the caller does not
// override them.
func DefaultDiagnosisIntegrationConfig() DiagnosisIntegrationConfig {
	return DiagnosisIntegrationConfig{
		EnableFallback:      true,
		ConfidenceThreshold: 60,
		MaxDiagnoses:        5,
		IncludeReasoning:    true,
	}
}

// DifferentialSuggester is the model-backed differential diagnosis flow.
type DifferentialSuggester interface {
	SuggestDifferentialDiagnosis(ctx context.Context, input *DifferentialDiagnosisInput) (*DifferentialDiagnosisOutput, error)
}

// DiagnosisQuality is the heuristic quality assessment of a differential list.
type DiagnosisQuality struct {
	IsValid      bool     `json:"isValid"`
	QualityScore int      `json:"qualityScore"`
	Issues       []string `json:"issues"`
}

// DiagnosisIntegration connects the differential diagnosis flow with the keyword
// fallback so examination requests always have differentials to work with.
type DiagnosisIntegration struct {
	suggester DifferentialSuggester
	fallback  *FallbackDiagnoser
	logger    *logrus.Logger
}

// NewDiagnosisIntegration creates the integration. suggester may be nil when no model
// is configured, in which case every lookup is served by the fallback.
func NewDiagnosisIntegration(suggester DifferentialSuggester, fallback *FallbackDiagnoser, logger *logrus.Logger) *DiagnosisIntegration {
	if fallback == nil {
		fallback = NewFallbackDiagnoser(nil)
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &DiagnosisIntegration{suggester: suggester, fallback: fallback, logger: logger}
}

// Fallback exposes the keyword diagnoser.
func (d *DiagnosisIntegration) Fallback() *FallbackDiagnoser {
	return d.fallback
}

// GetEnhancedDiagnoses asks the model for differentials and filters them by cfg. An
// empty model result or a model failure is masked by the keyword fallback when
// cfg.EnableFallback is set.
func (d *DiagnosisIntegration) GetEnhancedDiagnoses(ctx context.Context, anamnesis, physicalExam string, cfg DiagnosisIntegrationConfig) ([]domain.DifferentialDiagnosis, error) {
	if d.suggester == nil {
		return d.fallbackOrEmpty(anamnesis, physicalExam, cfg), nil
	}

	result, err := d.suggester.SuggestDifferentialDiagnosis(ctx, &DifferentialDiagnosisInput{
		Anamnesis:    anamnesis,
		PhysicalExam: physicalExam,
	})
	if err != nil {
		d.logger.WithError(err).Warn("Error getting differential diagnoses")
		if cfg.EnableFallback {
			return d.fallback.Diagnose(anamnesis, physicalExam), nil
		}
		return nil, fmt.Errorf("failed to get differential diagnoses: %w", err)
	}

	if result == nil || len(result.Diagnoses) == 0 {
		return d.fallbackOrEmpty(anamnesis, physicalExam, cfg), nil
	}

	out := make([]domain.DifferentialDiagnosis, 0, len(result.Diagnoses))
	for _, dx := range result.Diagnoses {
		if dx.Confidence < cfg.ConfidenceThreshold {
			continue
		}
		if cfg.MaxDiagnoses >= 0 && len(out) >= cfg.MaxDiagnoses {
			break
		}
		reasoning := dx.Reasoning
		if !cfg.IncludeReasoning {
			reasoning = ""
		}
		out = append(out, domain.DifferentialDiagnosis{
			Diagnosis:  dx.Diagnosis,
			Confidence: dx.Confidence,
			Priority:   domain.PriorityForConfidence(dx.Confidence),
			Reasoning:  reasoning,
			ICD10Code:  dx.ICD10Code,
		})
	}
	return out, nil
}

func (d *DiagnosisIntegration) fallbackOrEmpty(anamnesis, physicalExam string, cfg DiagnosisIntegrationConfig) []domain.DifferentialDiagnosis {
	if cfg.EnableFallback {
		return d.fallback.Diagnose(anamnesis, physicalExam)
	}
	return []domain.DifferentialDiagnosis{}
}

// ValidateDiagnosesQuality scores a differential list on confidence, reasoning and
// description quality. Lists scoring 60 or more are considered usable.
func ValidateDiagnosesQuality(diagnoses []domain.DifferentialDiagnosis) DiagnosisQuality {
	if len(diagnoses) == 0 {
		return DiagnosisQuality{IsValid: false, QualityScore: 0, Issues: []string{"No differential diagnoses provided"}}
	}

	quality := 0
	issues := []string{}

	for i, dx := range diagnoses {
		n := i + 1
		switch {
		case dx.Confidence < 50:
			issues = append(issues, fmt.Sprintf("Diagnosis %d has low confidence (%v%%)", n, dx.Confidence))
		case dx.Confidence >= 80:
			quality += 20
		default:
			quality += 10
		}

		if domain.TextLength(dx.Reasoning) < 10 {
			issues = append(issues, fmt.Sprintf("Diagnosis %d lacks sufficient reasoning", n))
		} else {
			quality += 15
		}

		if domain.TextLength(dx.Diagnosis) < 3 {
			issues = append(issues, fmt.Sprintf("Diagnosis %d has invalid description", n))
		} else {
			quality += 15
		}
	}

	if len(diagnoses) >= 3 {
		quality += 10
	}
	if len(diagnoses) >= 5 {
		quality += 10
	}

	maxPossible := len(diagnoses)*50 + 20
	score := int(math.Round(float64(quality) / float64(maxPossible) * 100))

	return DiagnosisQuality{IsValid: score >= 60, QualityScore: score, Issues: issues}
}

// EnhanceWithClinicalContext returns a copy of diagnoses with patient-context hints
// appended to each reasoning.
func EnhanceWithClinicalContext(diagnoses []domain.DifferentialDiagnosis, ctx *domain.ClinicalContext) []domain.DifferentialDiagnosis {
	out := make([]domain.DifferentialDiagnosis, len(diagnoses))
	copy(out, diagnoses)
	if ctx == nil {
		return out
	}

	var suffix strings.Builder
	if ctx.PatientAge != nil {
		if *ctx.PatientAge < 18 {
			suffix.WriteString(" [Consider pediatric-specific manifestations]")
		} else if *ctx.PatientAge > 65 {
			suffix.WriteString(" [Consider geriatric considerations and comorbidities]")
		}
	}
	if strings.EqualFold(string(ctx.PatientGender), string(domain.GenderFemale)) {
		suffix.WriteString(" [Consider gender-specific risk factors and presentations]")
	}
	if ctx.Specialization != "" {
		suffix.WriteString(fmt.Sprintf(" [%s perspective]", ctx.Specialization))
	}

	for i := range out {
		out[i].Reasoning += suffix.String()
	}
	return out
}
