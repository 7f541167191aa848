package health

import (
	"context"
	"time"
)

// checkTimeout bounds each dependency probe so one hung dependency cannot
// stall the whole health endpoint.
const checkTimeout = 3 * time.Second

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an optional component is down; core still serves.
	Degraded Status = "degraded"
	// Unhealthy indicates the store is down; presence cannot be served.
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

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store StorePinger
	ai    AIChecker
}

// New creates a Service. ai can be nil (provider not configured).
func New(store StorePinger, ai AIChecker) *Service {
	return &Service{store: store, ai: ai}
}

// Check runs health checks against all components, each under its own
// short deadline. The store is the only hard dependency: without it the
// service is unhealthy, while a failing AI provider merely degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	storeCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	err := s.store.Ping(storeCtx)
	cancel()
	if err != nil {
		checks["store"] = CheckError
		status = Unhealthy
	} else {
		checks["store"] = CheckOK
	}

	if s.ai != nil {
		aiCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := s.ai.HealthCheck(aiCtx)
		cancel()
		if err != nil {
			checks["ai"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks["ai"] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
