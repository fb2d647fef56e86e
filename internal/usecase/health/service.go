package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates the database is unreachable.
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

// Service coordinates health checks. The database is the only hard
// dependency; provider failures only degrade the service because the
// pipeline has fallbacks for each of them.
type Service struct {
	db        DBPinger
	providers map[string]ProviderChecker
}

// New creates a Service. Nil provider entries are skipped.
func New(db DBPinger, providers map[string]ProviderChecker) *Service {
	return &Service{db: db, providers: providers}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	dbOK := true
	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
		dbOK = false
	} else {
		checks["database"] = CheckOK
	}

	degraded := false
	for name, checker := range s.providers {
		if checker == nil {
			continue
		}
		if err := checker.HealthCheck(ctx); err != nil {
			checks[name] = CheckError
			degraded = true
		} else {
			checks[name] = CheckOK
		}
	}

	status := Healthy
	switch {
	case !dbOK:
		status = Unhealthy
	case degraded:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
