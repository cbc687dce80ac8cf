// Package mcp exposes the examination recommendation engine as Model Context Protocol
// tools over stdio. It needs no external database: feedback goes to SQLite and model
// responses are cached in memory.
package mcp

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/faskesq-clinical-assist/internal/cache"
	"github.com/faskesq-clinical-assist/internal/config"
	"github.com/faskesq-clinical-assist/internal/domain"
	"github.com/faskesq-clinical-assist/internal/feedback"
	"github.com/faskesq-clinical-assist/internal/jobs"
	"github.com/faskesq-clinical-assist/internal/prompts"
	"github.com/faskesq-clinical-assist/internal/service"
	"github.com/faskesq-clinical-assist/pkg/external"
)

const (
	serverName    = "faskesq-clinical-assist"
	serverVersion = "v0.1.0"
)

// Server is the stdio MCP server.
type Server struct {
	cfg           *config.LiteConfig
	mcpServer     *mcp.Server
	engine        *service.Engine
	router        *service.RecommendationRouter
	diagnoses     *service.DiagnosisIntegration
	exporter      *jobs.FeedbackExporter
	feedbackStore feedback.Store
	model         domain.ModelClient
	rules         *service.Rules
	logger        *logrus.Logger
}

// Option configures optional Server dependencies.
type Option func(*Server)

// WithFeedbackStore uses store instead of opening the SQLite database in the data dir.
func WithFeedbackStore(store feedback.Store) Option {
	return func(s *Server) {
		s.feedbackStore = store
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithModelClient replaces the provider client built from the configuration.
func WithModelClient(model domain.ModelClient) Option {
	return func(s *Server) {
		s.model = model
	}
}

// WithRules overrides the built-in scoring and keyword tables.
func WithRules(rules *service.Rules) Option {
	return func(s *Server) {
		s.rules = rules
	}
}

// NewServer wires the engine, the model client and the feedback store and registers
// every tool.
func NewServer(cfg *config.LiteConfig, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.DefaultLiteConfig()
	}
	s := &Server{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logrus.New()
		// stdout carries the protocol
		s.logger.SetOutput(os.Stderr)
		if cfg.LogFormat == "json" {
			s.logger.SetFormatter(&logrus.JSONFormatter{})
		} else {
			s.logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		}
		if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			s.logger.SetLevel(level)
		}
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if s.feedbackStore == nil {
		store, err := feedback.NewSQLiteStore(cfg.FeedbackDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open feedback store: %w", err)
		}
		s.feedbackStore = store
	}

	if s.model == nil {
		responses, err := cache.NewMemoryCache(cfg.CacheMaxItems, cfg.CacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to create response cache: %w", err)
		}
		client, err := external.NewModelClient(domain.LLMConfig{
			Provider:        cfg.Provider,
			Model:           cfg.Model,
			GeminiAPIKey:    cfg.GeminiAPIKey,
			AnthropicAPIKey: cfg.AnthropicAPIKey,
			AnthropicModel:  anthropicModel(cfg),
			RateLimit:       cfg.RateLimit,
			RateBurst:       1,
		}, responses, cfg.CacheTTL, s.logger)
		if err != nil {
			return nil, err
		}
		s.model = client
	}

	pm, err := prompts.NewDefaultPromptManager(s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}

	s.engine = service.NewEngine(s.rules, s.logger)
	s.router = service.NewRecommendationRouter(s.engine.Validator, pm, s.model, nil, s.logger)
	flows := service.NewClinicalFlows(pm, s.model, s.logger)
	s.diagnoses = service.NewDiagnosisIntegration(flows, s.engine.Fallback, s.logger)
	s.exporter = jobs.NewFeedbackExporter(s.feedbackStore, cfg.ExportDir(), s.logger)

	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, nil)
	s.registerTools()

	s.logger.WithField("data_dir", cfg.DataDir).Info("MCP server initialized")
	return s, nil
}

// anthropicModel reuses the configured model name when the provider is Anthropic.
func anthropicModel(cfg *config.LiteConfig) string {
	if strings.EqualFold(cfg.Provider, external.ProviderAnthropic) {
		return cfg.Model
	}
	return ""
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "validate_clinical_data",
		Description: "Score the completeness of partially entered clinical data and select the recommendation mode (Quick, Standard or Comprehensive).",
	}, s.validateClinicalData)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "recommend_examinations",
		Description: "Recommend supporting examinations for a quick, standard or comprehensive request. The prompt depth follows the data completeness score.",
	}, s.recommendExaminations)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "suggest_differential_diagnoses",
		Description: "Suggest differential diagnoses from anamnesis and physical examination, falling back to keyword rules when the model returns nothing.",
	}, s.suggestDifferentialDiagnoses)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "fallback_diagnoses",
		Description: "Derive differential diagnoses from keyword rules only, without calling the model.",
	}, s.fallbackDiagnoses)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "filter_recommendations",
		Description: "Apply progressive disclosure to a recommendation list based on data completeness.",
	}, s.filterRecommendations)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "progressive_recommendations",
		Description: "Return the recommendations visible at a disclosure level (1 essential, 2 important, 3 comprehensive).",
	}, s.progressiveRecommendations)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "record_feedback",
		Description: "Record a clinician decision (accepted, rejected or modified) on a recommended examination.",
	}, s.recordFeedback)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "export_feedback",
		Description: "Write all recorded feedback to a JSON file in the export directory.",
	}, s.exportFeedback)

	s.logger.WithField("tool_count", 8).Info("Registered MCP tools")
}

// Start serves MCP over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting FaskesQ MCP server on stdio")
	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.feedbackStore != nil {
		if err := s.feedbackStore.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close feedback store")
			return err
		}
	}
	return nil
}

// FeedbackStore returns the store backing record_feedback.
func (s *Server) FeedbackStore() feedback.Store {
	return s.feedbackStore
}
