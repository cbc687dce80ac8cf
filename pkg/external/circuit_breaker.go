package external

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/faskesq-clinical-assist/internal/domain"
)

// ErrServiceUnavailable is returned while the circuit breaker is open.
var ErrServiceUnavailable = errors.New("model service unavailable (circuit breaker open)")

// CircuitBreakerConfig represents circuit breaker configuration
type CircuitBreakerConfig struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// DefaultCircuitBreakerConfig trips after at least 3 requests with a 60% failure ratio
// and probes again after a minute.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxRequests:  5,
		Interval:     30 * time.Second,
		Timeout:      60 * time.Second,
		MinRequests:  3,
		FailureRatio: 0.6,
	}
}

// ResilientConfig configures ResilientModelClient
type ResilientConfig struct {
	Breaker   CircuitBreakerConfig
	RateLimit float64 // requests per second, 0 disables limiting
	RateBurst int
	CacheTTL  time.Duration
}

// ResilientModelClient wraps a ModelClient with a response cache, a rate limiter and a
// circuit breaker, in that order.
type ResilientModelClient struct {
	inner    domain.ModelClient
	cache    ResponseCache
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	cacheTTL time.Duration
	logger   *logrus.Logger
}

// NewResilientModelClient wraps inner. cache may be nil.
func NewResilientModelClient(inner domain.ModelClient, cache ResponseCache, config ResilientConfig, logger *logrus.Logger) *ResilientModelClient {
	if logger == nil {
		logger = logrus.New()
	}
	bc := config.Breaker
	if bc.MaxRequests == 0 {
		bc = DefaultCircuitBreakerConfig()
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), burst)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= bc.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
		// Caller cancellation says nothing about the health of the model service.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &ResilientModelClient{
		inner:    inner,
		cache:    cache,
		limiter:  limiter,
		breaker:  breaker,
		cacheTTL: config.CacheTTL,
		logger:   logger,
	}
}

// Name returns the wrapped client's name
func (r *ResilientModelClient) Name() string {
	return r.inner.Name()
}

// State reports the circuit breaker state for health checks.
func (r *ResilientModelClient) State() gobreaker.State {
	return r.breaker.State()
}

// Generate serves from cache when possible, otherwise waits for the limiter and calls
// the wrapped client through the breaker. Cache failures are logged and ignored.
func (r *ResilientModelClient) Generate(ctx context.Context, req *domain.ModelRequest) (*domain.ModelResponse, error) {
	key := RequestKey(r.inner.Name(), req)

	if r.cache != nil {
		if cached, found, err := r.cache.Get(ctx, key); err != nil {
			r.logger.WithError(err).Warn("Failed to read model response cache")
		} else if found {
			cached.Cached = true
			return cached, nil
		}
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.inner.Generate(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrServiceUnavailable
		}
		return nil, err
	}

	resp := result.(*domain.ModelResponse)

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, resp, r.cacheTTL); err != nil {
			r.logger.WithError(err).Warn("Failed to cache model response")
		}
	}

	return resp, nil
}
