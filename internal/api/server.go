package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/faskesq-clinical-assist/internal/domain"
	"github.com/faskesq-clinical-assist/internal/feedback"
	"github.com/faskesq-clinical-assist/internal/health"
	"github.com/faskesq-clinical-assist/internal/middleware"
	"github.com/faskesq-clinical-assist/internal/service"
)

// Services are the components the handlers call. Feedback, Records and Health may be
// nil; their endpoints then answer 503.
type Services struct {
	Engine    *service.Engine
	Router    *service.RecommendationRouter
	Flows     *service.ClinicalFlows
	Diagnoses *service.DiagnosisIntegration
	Feedback  feedback.Store
	Records   domain.RecommendationRepository
	Health    *health.HealthChecker
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	services      Services
	logger        *logrus.Logger
	router        *gin.Engine
	server        *http.Server
	upgrader      websocket.Upgrader
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, services Services, logger *logrus.Logger) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = logrus.New()
	}
	if services.Engine == nil {
		services.Engine = service.NewEngine(nil, logger)
	}
	if services.Diagnoses == nil {
		var suggester service.DifferentialSuggester
		if services.Flows != nil {
			suggester = services.Flows
		}
		services.Diagnoses = service.NewDiagnosisIntegration(suggester, services.Engine.Fallback, logger)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))
	router.Use(middleware.RateLimit(cfg.Server.RateLimit, cfg.Server.RateBurst))

	server := &Server{
		configManager: configManager,
		services:      services,
		logger:        logger,
		router:        router,
	}
	server.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.Server.AllowedOrigins),
	}

	server.setupRoutes(cfg.Server.RequestTimeout)

	return server
}

func corsConfig(origins []string) cors.Config {
	config := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	config.AllowHeaders = append(config.AllowHeaders, "Authorization", "X-Request-ID", "X-Correlation-ID")
	config.ExposeHeaders = []string{"X-Correlation-ID"}
	return config
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		var err error
		if cfg.TLSEnabled {
			err = s.server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes(requestTimeout time.Duration) {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	v1.GET("/ws/teleconsult", s.handleTeleconsult)

	timed := v1.Group("")
	timed.Use(middleware.RequestTimeout(requestTimeout))
	{
		timed.POST("/validate", s.handleValidate)

		timed.POST("/examinations/recommend", s.handleRecommend)
		timed.POST("/examinations/filter", s.handleFilter)
		timed.POST("/examinations/progressive", s.handleProgressive)

		timed.POST("/diagnoses/differential", s.handleDifferential)
		timed.POST("/diagnoses/fallback", s.handleFallback)
		timed.POST("/diagnoses/quality", s.handleDiagnosisQuality)

		timed.POST("/flows/medical-resume", s.handleMedicalResume)
		timed.POST("/flows/patient-education", s.handlePatientEducation)
		timed.POST("/flows/therapy", s.handleTherapy)

		timed.POST("/feedback", s.handleSaveFeedback)
		timed.GET("/feedback", s.handleListFeedback)
		timed.GET("/feedback/summary", s.handleFeedbackSummary)

		timed.GET("/recommendations/:id", s.handleGetRecommendation)
	}
}
