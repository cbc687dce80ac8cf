// Package health reports the state of the service's dependencies: the audit database,
// the feedback store, the Redis response cache and the model circuit breaker.
package health

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

type HealthState string

const (
	HealthStateHealthy   HealthState = "healthy"
	HealthStateUnhealthy HealthState = "unhealthy"
	HealthStateWarning   HealthState = "warning"
)

// ComponentHealth is the result of one check.
type ComponentHealth struct {
	Name     string        `json:"name"`
	Status   HealthState   `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// HealthStatus aggregates every registered check.
type HealthStatus struct {
	Overall    HealthState                `json:"overall"`
	Timestamp  time.Time                  `json:"timestamp"`
	Version    string                     `json:"version"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
}

// CheckFunc probes one dependency. A nil error is healthy. Returning ErrDegraded (or
// an error wrapping it) marks the component as a warning instead of unhealthy.
type CheckFunc func(ctx context.Context) error

// ErrDegraded marks a component that works but with reduced capability.
var ErrDegraded = errors.New("degraded")

type registeredCheck struct {
	name     string
	check    CheckFunc
	critical bool
}

// HealthChecker runs registered dependency checks with a per-check timeout.
type HealthChecker struct {
	mutex   sync.RWMutex
	checks  []registeredCheck
	timeout time.Duration
	version string
	started time.Time
	logger  *logrus.Logger
}

// NewHealthChecker creates a checker. timeout bounds each individual check.
func NewHealthChecker(version string, timeout time.Duration, logger *logrus.Logger) *HealthChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &HealthChecker{
		timeout: timeout,
		version: version,
		started: time.Now(),
		logger:  logger,
	}
}

// Register adds a check. A failing critical check makes the overall status unhealthy;
// a failing non-critical check only degrades it to warning.
func (h *HealthChecker) Register(name string, check CheckFunc, critical bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.checks = append(h.checks, registeredCheck{name: name, check: check, critical: critical})
}

// Check runs every registered check concurrently.
func (h *HealthChecker) Check(ctx context.Context) *HealthStatus {
	h.mutex.RLock()
	checks := make([]registeredCheck, len(h.checks))
	copy(checks, h.checks)
	h.mutex.RUnlock()

	results := make([]ComponentHealth, len(checks))
	var wg sync.WaitGroup
	for i, rc := range checks {
		wg.Add(1)
		go func(i int, rc registeredCheck) {
			defer wg.Done()
			results[i] = h.run(ctx, rc)
		}(i, rc)
	}
	wg.Wait()

	status := &HealthStatus{
		Overall:    HealthStateHealthy,
		Timestamp:  time.Now().UTC(),
		Version:    h.version,
		Uptime:     time.Since(h.started).Round(time.Second).String(),
		Components: make(map[string]ComponentHealth, len(results)),
	}
	for i, res := range results {
		status.Components[res.Name] = res
		switch {
		case res.Status == HealthStateUnhealthy && checks[i].critical:
			status.Overall = HealthStateUnhealthy
		case res.Status != HealthStateHealthy && status.Overall == HealthStateHealthy:
			status.Overall = HealthStateWarning
		}
	}
	return status
}

func (h *HealthChecker) run(ctx context.Context, rc registeredCheck) ComponentHealth {
	checkCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := rc.check(checkCtx)
	result := ComponentHealth{
		Name:     rc.name,
		Status:   HealthStateHealthy,
		Duration: time.Since(start),
	}
	if err == nil {
		return result
	}

	result.Error = err.Error()
	if errors.Is(err, ErrDegraded) {
		result.Status = HealthStateWarning
	} else {
		result.Status = HealthStateUnhealthy
	}
	h.logger.WithFields(logrus.Fields{
		"component": rc.name,
		"status":    result.Status,
		"error":     err,
	}).Warn("Health check failed")
	return result
}

// Names returns the registered check names, sorted.
func (h *HealthChecker) Names() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	names := make([]string, 0, len(h.checks))
	for _, rc := range h.checks {
		names = append(names, rc.name)
	}
	sort.Strings(names)
	return names
}

// SQLCheck pings a database/sql pool.
func SQLCheck(db *sql.DB) CheckFunc {
	return func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		return nil
	}
}

// Pinger is satisfied by the pgx pool wrapper.
type Pinger interface {
	Health(ctx context.Context) error
}

// PoolCheck checks a pgx pool through its Health method.
func PoolCheck(p Pinger) CheckFunc {
	return func(ctx context.Context) error {
		if err := p.Health(ctx); err != nil {
			return fmt.Errorf("database ping failed: %w", err)
		}
		return nil
	}
}

// RedisCheck pings the response cache.
func RedisCheck(client *redis.Client) CheckFunc {
	return func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		return nil
	}
}

// BreakerCheck reports a model circuit breaker that is not closed as degraded.
func BreakerCheck(state func() gobreaker.State) CheckFunc {
	return func(ctx context.Context) error {
		switch s := state(); s {
		case gobreaker.StateClosed:
			return nil
		default:
			return fmt.Errorf("model circuit breaker %s: %w", s, ErrDegraded)
		}
	}
}
