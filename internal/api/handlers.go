package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/faskesq-clinical-assist/internal/domain"
	"github.com/faskesq-clinical-assist/internal/feedback"
	"github.com/faskesq-clinical-assist/internal/health"
	"github.com/faskesq-clinical-assist/internal/middleware"
	"github.com/faskesq-clinical-assist/internal/service"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

var errNotConfigured = errors.New("not configured")

type validateResponse struct {
	*domain.ValidationResult
	DataImprovementSuggestions []string `json:"dataImprovementSuggestions"`
}

type filterRequest struct {
	Recommendations  []domain.ExaminationRecommendation `json:"recommendations" binding:"required"`
	DataCompleteness int                                `json:"dataCompleteness"`
	Config           service.DisclosureConfig           `json:"config"`
}

type progressiveRequest struct {
	Recommendations []domain.ExaminationRecommendation `json:"recommendations" binding:"required"`
	CurrentLevel    int                                `json:"currentLevel"`
}

type differentialRequest struct {
	Anamnesis    string                             `json:"anamnesis" binding:"required"`
	PhysicalExam string                             `json:"physicalExam"`
	Context      *domain.ClinicalContext            `json:"context,omitempty"`
	Config       service.DiagnosisIntegrationConfig `json:"config"`
}

type differentialResponse struct {
	Diagnoses []domain.DifferentialDiagnosis `json:"diagnoses"`
	Quality   service.DiagnosisQuality       `json:"quality"`
}

type fallbackRequest struct {
	Anamnesis    string `json:"anamnesis"`
	PhysicalExam string `json:"physicalExam"`
}

type qualityRequest struct {
	Diagnoses []domain.DifferentialDiagnosis `json:"diagnoses"`
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.services.Health == nil {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
			"version":   s.configManager.GetConfig().MCP.ServerVersion,
		})
		return
	}

	status := s.services.Health.Check(c.Request.Context())
	code := http.StatusOK
	if status.Overall == health.HealthStateUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}

func (s *Server) handleValidate(c *gin.Context) {
	var input domain.ClinicalInput
	if !s.bind(c, &input) {
		return
	}

	result := s.services.Engine.Validator.Validate(&input)
	c.JSON(http.StatusOK, validateResponse{
		ValidationResult:           result,
		DataImprovementSuggestions: service.SuggestDataImprovements(&input),
	})
}

func (s *Server) handleRecommend(c *gin.Context) {
	if s.services.Router == nil {
		s.unavailable(c, "recommendation router")
		return
	}

	var envelope domain.ExaminationRequestEnvelope
	if !s.bind(c, &envelope) {
		return
	}
	req, err := envelope.Request()
	if err != nil {
		s.writeError(c, err)
		return
	}

	out, err := s.services.Router.Recommend(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleFilter(c *gin.Context) {
	req := filterRequest{Config: s.services.Engine.Rules.Disclosure}
	if !s.bind(c, &req) {
		return
	}
	threshold, err := domain.ParsePriority(string(req.Config.PriorityThreshold))
	if err != nil {
		s.writeError(c, domain.NewValidationError("config.priorityThreshold", err.Error(), req.Config.PriorityThreshold))
		return
	}
	req.Config.PriorityThreshold = threshold

	c.JSON(http.StatusOK, s.services.Engine.Disclosure.Filter(req.Recommendations, req.DataCompleteness, req.Config))
}

func (s *Server) handleProgressive(c *gin.Context) {
	req := progressiveRequest{CurrentLevel: 1}
	if !s.bind(c, &req) {
		return
	}

	recs := s.services.Engine.Disclosure.Leveled(req.Recommendations, req.CurrentLevel)
	c.JSON(http.StatusOK, gin.H{
		"recommendations": recs,
		"currentLevel":    req.CurrentLevel,
	})
}

func (s *Server) handleDifferential(c *gin.Context) {
	req := differentialRequest{Config: s.services.Engine.Rules.Diagnosis}
	if !s.bind(c, &req) {
		return
	}

	diagnoses, err := s.services.Diagnoses.GetEnhancedDiagnoses(c.Request.Context(), req.Anamnesis, req.PhysicalExam, req.Config)
	if err != nil {
		s.writeError(c, err)
		return
	}
	diagnoses = service.EnhanceWithClinicalContext(diagnoses, req.Context)

	c.JSON(http.StatusOK, differentialResponse{
		Diagnoses: diagnoses,
		Quality:   service.ValidateDiagnosesQuality(diagnoses),
	})
}

func (s *Server) handleFallback(c *gin.Context) {
	var req fallbackRequest
	if !s.bind(c, &req) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"diagnoses": s.services.Engine.Fallback.Diagnose(req.Anamnesis, req.PhysicalExam),
	})
}

func (s *Server) handleDiagnosisQuality(c *gin.Context) {
	var req qualityRequest
	if !s.bind(c, &req) {
		return
	}
	c.JSON(http.StatusOK, service.ValidateDiagnosesQuality(req.Diagnoses))
}

func (s *Server) handleMedicalResume(c *gin.Context) {
	if s.services.Flows == nil {
		s.unavailable(c, "clinical flows")
		return
	}
	var req service.MedicalResumeInput
	if !s.bind(c, &req) {
		return
	}
	out, err := s.services.Flows.CompleteMedicalResume(c.Request.Context(), &req)
	s.respond(c, out, err)
}

func (s *Server) handlePatientEducation(c *gin.Context) {
	if s.services.Flows == nil {
		s.unavailable(c, "clinical flows")
		return
	}
	var req service.PatientEducationInput
	if !s.bind(c, &req) {
		return
	}
	out, err := s.services.Flows.SuggestPatientEducation(c.Request.Context(), &req)
	s.respond(c, out, err)
}

func (s *Server) handleTherapy(c *gin.Context) {
	if s.services.Flows == nil {
		s.unavailable(c, "clinical flows")
		return
	}
	var req service.TherapyInput
	if !s.bind(c, &req) {
		return
	}
	out, err := s.services.Flows.SuggestTherapyAndActions(c.Request.Context(), &req)
	s.respond(c, out, err)
}

func (s *Server) handleSaveFeedback(c *gin.Context) {
	if s.services.Feedback == nil {
		s.unavailable(c, "feedback store")
		return
	}
	var fb feedback.Feedback
	if !s.bind(c, &fb) {
		return
	}
	if err := fb.Validate(); err != nil {
		s.writeError(c, domain.NewValidationError("feedback", err.Error(), nil))
		return
	}

	if err := s.services.Feedback.Save(c.Request.Context(), &fb); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fb)
}

func (s *Server) handleListFeedback(c *gin.Context) {
	if s.services.Feedback == nil {
		s.unavailable(c, "feedback store")
		return
	}
	limit := queryInt(c, "limit", defaultPageSize)
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	ctx := c.Request.Context()
	items, err := s.services.Feedback.List(ctx, limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	total, err := s.services.Feedback.Count(ctx)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if items == nil {
		items = []*feedback.Feedback{}
	}
	c.JSON(http.StatusOK, gin.H{
		"feedback": items,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

func (s *Server) handleFeedbackSummary(c *gin.Context) {
	if s.services.Feedback == nil {
		s.unavailable(c, "feedback store")
		return
	}
	summary, err := s.services.Feedback.Summarize(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summary":        summary,
		"acceptanceRate": summary.AcceptanceRate(),
	})
}

func (s *Server) handleGetRecommendation(c *gin.Context) {
	if s.services.Records == nil {
		s.unavailable(c, "recommendation records")
		return
	}
	record, err := s.services.Records.GetRecommendation(c.Request.Context(), c.Param("id"))
	s.respond(c, record, err)
}

// bind decodes the JSON body into dst, answering 400 on failure.
func (s *Server) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		apiErr := domain.NewAPIError(domain.ErrInvalidInput, "Format permintaan tidak valid", err.Error(), c.GetString(middleware.CorrelationIDKey))
		c.AbortWithStatusJSON(http.StatusBadRequest, apiErr)
		return false
	}
	return true
}

func (s *Server) respond(c *gin.Context, out any, err error) {
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) unavailable(c *gin.Context, component string) {
	apiErr := domain.NewAPIError("SERVICE_UNAVAILABLE", component+" is "+errNotConfigured.Error(), "", c.GetString(middleware.CorrelationIDKey))
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, apiErr)
}

// writeError maps err onto its status and APIError body. Internal errors are logged and
// answered without details.
func (s *Server) writeError(c *gin.Context, err error) {
	status, code := domain.ClassifyError(err)
	requestID := c.GetString(middleware.CorrelationIDKey)

	message := err.Error()
	details := ""
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		s.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"path":       c.FullPath(),
			"error":      err,
		}).Error("Request failed")
		message = "Terjadi kesalahan internal"
	}
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		details = validation.Field
	}

	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, details, requestID))
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
