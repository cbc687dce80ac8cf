package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/faskesq-clinical-assist/internal/domain"
	"github.com/faskesq-clinical-assist/internal/feedback"
	"github.com/faskesq-clinical-assist/internal/service"
)

// ValidateParams defines parameters for validate_clinical_data.
type ValidateParams struct {
	MainComplaint         string                         `json:"mainComplaint,omitempty"`
	Diagnosis             string                         `json:"diagnosis,omitempty"`
	Anamnesis             string                         `json:"anamnesis,omitempty"`
	PhysicalExam          string                         `json:"physicalExam,omitempty"`
	DifferentialDiagnoses []domain.DifferentialDiagnosis `json:"differentialDiagnoses,omitempty"`
}

// ValidateResult defines the result of validate_clinical_data.
type ValidateResult struct {
	Validation                 domain.ValidationResult `json:"validation"`
	DataImprovementSuggestions []string                `json:"dataImprovementSuggestions"`
}

// DifferentialParams defines parameters for suggest_differential_diagnoses.
type DifferentialParams struct {
	Anamnesis    string                  `json:"anamnesis"`
	PhysicalExam string                  `json:"physicalExam,omitempty"`
	Context      *domain.ClinicalContext `json:"context,omitempty"`
	Config       map[string]any          `json:"config,omitempty" jsonschema:"partial diagnosis integration config; omitted fields keep their defaults"`
}

// DifferentialResult defines the result of suggest_differential_diagnoses.
type DifferentialResult struct {
	Diagnoses []domain.DifferentialDiagnosis `json:"diagnoses"`
	Quality   service.DiagnosisQuality       `json:"quality"`
}

// FallbackParams defines parameters for fallback_diagnoses.
type FallbackParams struct {
	Anamnesis    string `json:"anamnesis,omitempty"`
	PhysicalExam string `json:"physicalExam,omitempty"`
}

// FallbackResult defines the result of fallback_diagnoses.
type FallbackResult struct {
	Diagnoses []domain.DifferentialDiagnosis `json:"diagnoses"`
}

// FilterParams defines parameters for filter_recommendations.
type FilterParams struct {
	Recommendations  []domain.ExaminationRecommendation `json:"recommendations"`
	DataCompleteness int                                `json:"dataCompleteness"`
	Config           map[string]any                     `json:"config,omitempty" jsonschema:"partial disclosure config; omitted fields keep their defaults"`
}

// ProgressiveParams defines parameters for progressive_recommendations.
type ProgressiveParams struct {
	Recommendations []domain.ExaminationRecommendation `json:"recommendations"`
	CurrentLevel    int                                `json:"currentLevel,omitempty"`
}

// ProgressiveResult defines the result of progressive_recommendations.
type ProgressiveResult struct {
	Level           int                                `json:"level"`
	Recommendations []domain.ExaminationRecommendation `json:"recommendations"`
}

// RecordFeedbackParams defines parameters for record_feedback.
type RecordFeedbackParams struct {
	RecordID            string  `json:"recordId"`
	Examination         string  `json:"examination"`
	Decision            string  `json:"decision"`
	Mode                string  `json:"mode,omitempty"`
	SuggestedPriority   string  `json:"suggestedPriority,omitempty"`
	SuggestedConfidence float64 `json:"suggestedConfidence,omitempty"`
	Replacement         string  `json:"replacement,omitempty"`
	Notes               string  `json:"notes,omitempty"`
}

// RecordFeedbackResult defines the result of record_feedback.
type RecordFeedbackResult struct {
	ID             int64            `json:"id"`
	Decision       string           `json:"decision"`
	Summary        feedback.Summary `json:"summary"`
	AcceptanceRate float64          `json:"acceptanceRate"`
}

// ExportFeedbackParams defines parameters for export_feedback.
type ExportFeedbackParams struct{}

// ExportFeedbackResult defines the result of export_feedback.
type ExportFeedbackResult struct {
	Path  string `json:"path"`
	Count int64  `json:"count"`
}

func (s *Server) toolLog(tool string) *logrus.Entry {
	return s.logger.WithField("tool", tool)
}

func (s *Server) validateClinicalData(_ context.Context, _ *mcp.CallToolRequest, params ValidateParams) (*mcp.CallToolResult, ValidateResult, error) {
	input := &domain.ClinicalInput{
		MainComplaint:         params.MainComplaint,
		Diagnosis:             params.Diagnosis,
		Anamnesis:             params.Anamnesis,
		PhysicalExam:          params.PhysicalExam,
		DifferentialDiagnoses: params.DifferentialDiagnoses,
	}
	s.toolLog("validate_clinical_data").WithFields(input.LogFields()).Debug("Tool invoked")

	result := s.engine.Validator.Validate(input)
	return nil, ValidateResult{
		Validation:                 *result,
		DataImprovementSuggestions: service.SuggestDataImprovements(input),
	}, nil
}

func (s *Server) recommendExaminations(ctx context.Context, _ *mcp.CallToolRequest, params domain.ExaminationRequestEnvelope) (*mcp.CallToolResult, domain.ExaminationsOutput, error) {
	start := time.Now()
	req, err := params.Request()
	if err != nil {
		return nil, domain.ExaminationsOutput{}, err
	}

	out, err := s.router.Recommend(ctx, req)
	if err != nil {
		s.toolLog("recommend_examinations").WithError(err).Warn("Recommendation failed")
		return nil, domain.ExaminationsOutput{}, err
	}

	s.toolLog("recommend_examinations").WithFields(logrus.Fields{
		"mode":            out.RecommendationMode,
		"recommendations": len(out.Recommendations),
		"duration_ms":     time.Since(start).Milliseconds(),
	}).Info("Recommendations generated")
	return nil, *out, nil
}

func (s *Server) suggestDifferentialDiagnoses(ctx context.Context, _ *mcp.CallToolRequest, params DifferentialParams) (*mcp.CallToolResult, DifferentialResult, error) {
	if strings.TrimSpace(params.Anamnesis) == "" {
		return nil, DifferentialResult{}, domain.NewValidationError("anamnesis", "anamnesis is required", params.Anamnesis)
	}
	cfg, err := overlayConfig(s.engine.Rules.Diagnosis, params.Config)
	if err != nil {
		return nil, DifferentialResult{}, err
	}

	diagnoses, err := s.diagnoses.GetEnhancedDiagnoses(ctx, params.Anamnesis, params.PhysicalExam, cfg)
	if err != nil {
		return nil, DifferentialResult{}, err
	}
	diagnoses = service.EnhanceWithClinicalContext(diagnoses, params.Context)

	return nil, DifferentialResult{
		Diagnoses: diagnoses,
		Quality:   service.ValidateDiagnosesQuality(diagnoses),
	}, nil
}

func (s *Server) fallbackDiagnoses(_ context.Context, _ *mcp.CallToolRequest, params FallbackParams) (*mcp.CallToolResult, FallbackResult, error) {
	return nil, FallbackResult{
		Diagnoses: s.engine.Fallback.Diagnose(params.Anamnesis, params.PhysicalExam),
	}, nil
}

func (s *Server) filterRecommendations(_ context.Context, _ *mcp.CallToolRequest, params FilterParams) (*mcp.CallToolResult, domain.ProgressiveRecommendation, error) {
	cfg, err := overlayConfig(s.engine.Rules.Disclosure, params.Config)
	if err != nil {
		return nil, domain.ProgressiveRecommendation{}, err
	}
	threshold, err := domain.ParsePriority(string(cfg.PriorityThreshold))
	if err != nil {
		return nil, domain.ProgressiveRecommendation{}, domain.NewValidationError("config.priorityThreshold", err.Error(), cfg.PriorityThreshold)
	}
	cfg.PriorityThreshold = threshold
	return nil, *s.engine.Disclosure.Filter(params.Recommendations, params.DataCompleteness, cfg), nil
}

func (s *Server) progressiveRecommendations(_ context.Context, _ *mcp.CallToolRequest, params ProgressiveParams) (*mcp.CallToolResult, ProgressiveResult, error) {
	level := params.CurrentLevel
	if level == 0 {
		level = 1
	}
	return nil, ProgressiveResult{
		Level:           level,
		Recommendations: s.engine.Disclosure.Leveled(params.Recommendations, level),
	}, nil
}

func (s *Server) recordFeedback(ctx context.Context, _ *mcp.CallToolRequest, params RecordFeedbackParams) (*mcp.CallToolResult, RecordFeedbackResult, error) {
	fb := &feedback.Feedback{
		RecordID:            params.RecordID,
		Examination:         params.Examination,
		Mode:                params.Mode,
		SuggestedPriority:   params.SuggestedPriority,
		SuggestedConfidence: params.SuggestedConfidence,
		Decision:            feedback.Decision(params.Decision),
		Replacement:         params.Replacement,
		Notes:               params.Notes,
	}
	if err := fb.Validate(); err != nil {
		return nil, RecordFeedbackResult{}, domain.NewValidationError("feedback", err.Error(), params.Decision)
	}
	if err := s.feedbackStore.Save(ctx, fb); err != nil {
		return nil, RecordFeedbackResult{}, err
	}

	summary, err := s.feedbackStore.Summarize(ctx)
	if err != nil {
		return nil, RecordFeedbackResult{}, err
	}

	s.toolLog("record_feedback").WithFields(logrus.Fields{
		"record_id": fb.RecordID,
		"decision":  fb.Decision,
	}).Info("Feedback recorded")

	return nil, RecordFeedbackResult{
		ID:             fb.ID,
		Decision:       string(fb.Decision),
		Summary:        *summary,
		AcceptanceRate: summary.AcceptanceRate(),
	}, nil
}

func (s *Server) exportFeedback(ctx context.Context, _ *mcp.CallToolRequest, _ ExportFeedbackParams) (*mcp.CallToolResult, ExportFeedbackResult, error) {
	count, err := s.feedbackStore.Count(ctx)
	if err != nil {
		return nil, ExportFeedbackResult{}, err
	}
	path, err := s.exporter.Export(ctx)
	if err != nil {
		return nil, ExportFeedbackResult{}, err
	}
	return nil, ExportFeedbackResult{Path: path, Count: count}, nil
}

// overlayConfig decodes a partial config object over a copy of defaults.
func overlayConfig[T any](defaults T, partial map[string]any) (T, error) {
	cfg := defaults
	if len(partial) == 0 {
		return cfg, nil
	}
	data, err := json.Marshal(partial)
	if err != nil {
		return defaults, fmt.Errorf("encoding config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return defaults, domain.NewValidationError("config", err.Error(), partial)
	}
	return cfg, nil
}
