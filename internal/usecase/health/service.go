package health

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsage/internal/logger"
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

// Component names in Report.Checks.
const (
	ComponentIndex      = "index"
	ComponentEmbedding  = "embedding"
	ComponentGeneration = "generation"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index      IndexPinger
	embedding  ProviderChecker
	generation ProviderChecker
	logger     *zap.Logger
}

// New creates a Service. embedding and generation can be nil.
func New(index IndexPinger, embedding, generation ProviderChecker, logger *zap.Logger) *Service {
	return &Service{index: index, embedding: embedding, generation: generation, logger: logger}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	log := logger.FromContext(ctx, s.logger)
	checks := make(map[string]CheckResult)

	record := func(name string, err error) {
		if err != nil {
			log.Warn("Health check failed", zap.String("component", name), zap.Error(err))
			checks[name] = CheckError
			return
		}
		checks[name] = CheckOK
	}

	record(ComponentIndex, s.index.Ping(ctx))
	if s.embedding != nil {
		record(ComponentEmbedding, s.embedding.HealthCheck(ctx))
	}
	if s.generation != nil {
		record(ComponentGeneration, s.generation.HealthCheck(ctx))
	}

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed == len(checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
