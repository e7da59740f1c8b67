package health

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported by the service.
const (
	ComponentRedis        = "redis"
	ComponentEmbedding    = "embedding"
	ComponentCrossEncoder = "cross_encoder"
	ComponentLLM          = "llm"
)

// DefaultCheckTimeout bounds every individual probe.
const DefaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type component struct {
	name    string
	checker Checker
}

// Service coordinates health checks.
type Service struct {
	components []component
	timeout    time.Duration
	logger     *zap.Logger
}

// New creates a Service with no components.
func New(logger *zap.Logger) *Service {
	return &Service{timeout: DefaultCheckTimeout, logger: logger}
}

// Register adds a named component. A nil checker is ignored so optional
// dependencies can be registered unconditionally.
func (s *Service) Register(name string, c Checker) *Service {
	if c != nil {
		s.components = append(s.components, component{name: name, checker: c})
	}
	return s
}

// Check probes all components concurrently. Any failure degrades the report;
// when every component fails it is unhealthy.
func (s *Service) Check(ctx context.Context) Report {
	results := make([]CheckResult, len(s.components))

	var g errgroup.Group
	for i, c := range s.components {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if err := c.checker.HealthCheck(cctx); err != nil {
				s.logger.Warn("Health check failed", zap.String("component", c.name), zap.Error(err))
				results[i] = CheckError
				return nil
			}
			results[i] = CheckOK
			return nil
		})
	}
	_ = g.Wait()

	checks := make(map[string]CheckResult, len(s.components))
	failed := 0
	for i, c := range s.components {
		checks[c.name] = results[i]
		if results[i] == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed > 0 && failed == len(s.components):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
