package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/faskesq-clinical-assist/internal/domain"
	"github.com/faskesq-clinical-assist/internal/prompts"
	"github.com/faskesq-clinical-assist/pkg/external"
)

// insufficientDataFloor is the hard score floor below which no recommendation is
// attempted, independent of mode.
const insufficientDataFloor = 30

const derivedComplaintMaxRunes = 200

// RecommendationRouter validates an examination request, picks the prompt template the
// data supports and merges the model's recommendations with the validation metadata.
type RecommendationRouter struct {
	validator *SmartValidator
	prompts   *prompts.PromptManager
	model     domain.ModelClient
	records   domain.RecommendationRepository
	logger    *logrus.Logger
}

// NewRecommendationRouter creates a router. records may be nil, in which case no audit
// record is written.
func NewRecommendationRouter(
	validator *SmartValidator,
	pm *prompts.PromptManager,
	model domain.ModelClient,
	records domain.RecommendationRepository,
	logger *logrus.Logger,
) *RecommendationRouter {
	if logger == nil {
		logger = logrus.New()
	}
	return &RecommendationRouter{
		validator: validator,
		prompts:   pm,
		model:     model,
		records:   records,
		logger:    logger,
	}
}

type routedPrompt struct {
	template string
	data     any
}

// SelectTemplate returns the template name and template data for req given the
// validation outcome.
func (r *RecommendationRouter) SelectTemplate(req domain.ExaminationRequest, validation *domain.ValidationResult) (string, any) {
	p := route(req, validation.RecommendationMode)
	return p.template, p.data
}

func route(req domain.ExaminationRequest, mode domain.RecommendationMode) routedPrompt {
	switch v := req.(type) {
	case *domain.QuickRequest:
		return routedPrompt{template: prompts.QuickExaminations, data: v}

	case *domain.StandardRequest:
		switch {
		case mode == domain.ModeQuick:
			return routedPrompt{template: prompts.QuickExaminations, data: quickFrom(v.MainComplaint, v.Anamnesis, v.Diagnosis, v.Context)}
		case hasNarrative(v.Anamnesis, v.PhysicalExam) && mode == domain.ModeStandard:
			return routedPrompt{template: prompts.StandardExaminations, data: v}
		default:
			diffs := v.DifferentialDiagnoses
			if diffs == nil {
				diffs = []domain.DifferentialDiagnosis{}
			}
			return routedPrompt{template: prompts.ComprehensiveExaminations, data: &domain.ComprehensiveRequest{
				MainComplaint:         v.MainComplaint,
				Diagnosis:             v.Diagnosis,
				Anamnesis:             v.Anamnesis,
				PhysicalExam:          v.PhysicalExam,
				DifferentialDiagnoses: diffs,
				Context:               v.Context,
			}}
		}

	case *domain.ComprehensiveRequest:
		switch {
		case mode == domain.ModeQuick:
			return routedPrompt{template: prompts.QuickExaminations, data: quickFrom(v.MainComplaint, v.Anamnesis, v.Diagnosis, v.Context)}
		case hasNarrative(v.Anamnesis, v.PhysicalExam) && mode == domain.ModeStandard:
			return routedPrompt{template: prompts.StandardExaminations, data: &domain.StandardRequest{
				MainComplaint:         v.MainComplaint,
				Diagnosis:             v.Diagnosis,
				Anamnesis:             v.Anamnesis,
				PhysicalExam:          v.PhysicalExam,
				DifferentialDiagnoses: v.DifferentialDiagnoses,
				Context:               v.Context,
			}}
		default:
			return routedPrompt{template: prompts.ComprehensiveExaminations, data: v}
		}
	}

	// Unreachable: the request interface is sealed.
	panic(fmt.Sprintf("unhandled examination request type %T", req))
}

func hasNarrative(anamnesis, physicalExam string) bool {
	return strings.TrimSpace(anamnesis) != "" && strings.TrimSpace(physicalExam) != ""
}

// quickFrom builds a Quick request for a richer variant whose data only supports Quick
// mode. Without a main complaint the first sentence of the anamnesis stands in for it.
func quickFrom(mainComplaint, anamnesis, diagnosis string, ctx *domain.ClinicalContext) *domain.QuickRequest {
	complaint := strings.TrimSpace(mainComplaint)
	if complaint == "" {
		complaint = DeriveMainComplaint(anamnesis)
	}
	return &domain.QuickRequest{MainComplaint: complaint, Diagnosis: diagnosis, Context: ctx}
}

// DeriveMainComplaint takes the first sentence of an anamnesis, capped at 200 runes.
func DeriveMainComplaint(anamnesis string) string {
	text := strings.TrimSpace(anamnesis)
	if i := strings.IndexAny(text, ".\n"); i > 0 {
		text = text[:i]
	}
	if utf8.RuneCountInString(text) > derivedComplaintMaxRunes {
		text = string([]rune(text)[:derivedComplaintMaxRunes])
	}
	return strings.TrimSpace(text)
}

type examinationsModelOutput struct {
	Recommendations []domain.ExaminationRecommendation `json:"recommendations"`
}

// Recommend validates req, fails with InsufficientDataError below the hard floor,
// otherwise calls the model with the selected template. The returned metadata always
// comes from the validation, never from the model.
func (r *RecommendationRouter) Recommend(ctx context.Context, req domain.ExaminationRequest) (*domain.ExaminationsOutput, error) {
	start := time.Now()
	input := req.ClinicalInput()
	validation := r.validator.Validate(&input)

	logger := r.logger.WithFields(logrus.Fields{
		"score":      validation.Score,
		"mode":       validation.RecommendationMode,
		"confidence": validation.ConfidenceLevel,
	})

	if validation.Score < insufficientDataFloor {
		logger.Info("Insufficient clinical data for recommendation")
		return nil, &domain.InsufficientDataError{Score: validation.Score, Warnings: validation.Warnings}
	}

	routed := route(req, validation.RecommendationMode)
	logger = logger.WithField("template", routed.template)

	rendered, err := r.prompts.Render(ctx, routed.template, routed.data)
	if err != nil {
		return nil, fmt.Errorf("rendering %s prompt: %w", routed.template, err)
	}

	resp, err := r.model.Generate(ctx, &domain.ModelRequest{
		Name:           rendered.Name,
		SystemPrompt:   rendered.SystemPrompt,
		Prompt:         rendered.Content,
		ResponseSchema: rendered.ResponseSchema,
		Temperature:    rendered.Temperature,
	})
	if err != nil {
		logger.WithError(err).Error("Examination recommendation model call failed")
		return nil, &domain.UpstreamError{Op: routed.template, Err: err}
	}

	var raw examinationsModelOutput
	if err := external.DecodeJSON(resp.Text, &raw); err != nil {
		logger.WithError(err).Error("Examination recommendation response was malformed")
		return nil, &domain.UpstreamError{Op: routed.template, Err: err}
	}

	recs := raw.Recommendations
	if recs == nil {
		recs = []domain.ExaminationRecommendation{}
	}
	for i := range recs {
		recs[i].Normalize()
	}

	output := &domain.ExaminationsOutput{
		Recommendations:    recs,
		DataCompleteness:   validation.Score,
		RecommendationMode: validation.RecommendationMode,
		ConfidenceLevel:    validation.ConfidenceLevel,
		MissingData:        validation.MissingFields,
	}
	if len(validation.Warnings) > 0 {
		output.ClinicalNotes = strings.Join(validation.Warnings, ". ")
	}

	elapsed := time.Since(start)
	if r.records != nil {
		record := &domain.RecommendationRecord{
			ID:                  uuid.New().String(),
			RequestID:           RequestIDFromContext(ctx),
			RequestType:         requestType(req),
			Template:            routed.template,
			Mode:                validation.RecommendationMode,
			Score:               validation.Score,
			ConfidenceLevel:     validation.ConfidenceLevel,
			RecommendationCount: len(recs),
			Model:               r.model.Name(),
			ProcessingTimeMs:    elapsed.Milliseconds(),
			CreatedAt:           time.Now().UTC(),
		}
		if err := r.records.SaveRecommendation(ctx, record); err != nil {
			logger.WithError(err).Warn("Failed to save recommendation record")
		} else {
			output.RecordID = record.ID
		}
	}

	logger.WithFields(logrus.Fields{
		"recommendations": len(recs),
		"cached":          resp.Cached,
		"duration_ms":     elapsed.Milliseconds(),
	}).Info("Examination recommendations generated")

	return output, nil
}

func requestType(req domain.ExaminationRequest) string {
	switch req.(type) {
	case *domain.QuickRequest:
		return "quick"
	case *domain.StandardRequest:
		return "standard"
	case *domain.ComprehensiveRequest:
		return "comprehensive"
	}
	return "unknown"
}

type requestIDKey struct{}

// WithRequestID stores the correlation id for audit records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id stored by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
