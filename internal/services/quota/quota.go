package quota

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Plan is a tenant subscription tier.
type Plan string

const (
	PlanBasic      Plan = "basic"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Request-rate ceilings per rolling window.
var ceilings = map[Plan]int64{
	PlanBasic:      100,
	PlanPro:        500,
	PlanEnterprise: 2000,
}

// ErrQuotaExceeded signals that the plan ceiling was hit. The caller must
// refuse the request without side effects.
var ErrQuotaExceeded = errors.New("quota exceeded")

// NormalizePlan resolves unknown or malformed plan values to basic.
func NormalizePlan(raw string) Plan {
	switch Plan(raw) {
	case PlanBasic, PlanPro, PlanEnterprise:
		return Plan(raw)
	default:
		return PlanBasic
	}
}

// Ceiling returns the request ceiling for a plan, normalizing first.
func Ceiling(raw string) int64 {
	return ceilings[NormalizePlan(raw)]
}

// Storage is a token-bucket backend. Allow consumes one token from the tenant
// bucket and reports whether the request fits the ceiling.
type Storage interface {
	Allow(ctx context.Context, tenantID string, limit int64, window time.Duration) (bool, error)
}

// Gate enforces plan-based request ceilings. The gate is advisory metadata for
// dashboards as well as a hard limit at the request path; a backend failure
// fails open so that limiter availability never blocks a query.
type Gate struct {
	storage Storage
	window  time.Duration
}

func NewGate(storage Storage, window time.Duration) *Gate {
	if window <= 0 {
		window = time.Hour
	}
	return &Gate{storage: storage, window: window}
}

// Check consumes one request from the tenant's bucket. Returns
// ErrQuotaExceeded when the ceiling is hit.
func (g *Gate) Check(ctx context.Context, tenantID, plan string) error {
	limit := Ceiling(plan)

	allowed, err := g.storage.Allow(ctx, tenantID, limit, g.window)
	if err != nil {
		slog.Warn("Quota storage unavailable, failing open", slog.String("tenant_id", tenantID), slog.Any("error", err))
		return nil
	}

	if !allowed {
		return ErrQuotaExceeded
	}

	return nil
}
