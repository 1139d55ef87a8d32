package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/caisdata/cais/internal/causal"
	"github.com/caisdata/cais/internal/services/permission"
)

var (
	// ErrUnknownMethod signals a method outside the supported enumeration.
	ErrUnknownMethod = errors.New("unknown analysis method")
	// ErrMethodNotAllowed signals a method gated behind a feature flag the
	// tenant does not have.
	ErrMethodNotAllowed = errors.New("analysis method not enabled for tenant")
)

// authorizer answers module/action questions; permission.PermissionService
// implements it.
type authorizer interface {
	Authorize(ctx context.Context, tenantID uuid.UUID, roles []string, module int, action permission.Action) error
}

// flagChecker answers feature-flag questions; tenant.TenantService implements
// it.
type flagChecker interface {
	FlagEnabled(ctx context.Context, tenantID uuid.UUID, flag string) (bool, error)
}

// Queue hands a persisted job to the broker; the Redis broker implements it.
type Queue interface {
	Enqueue(ctx context.Context, job *AnalysisJob) error
}

// jobStore is the repo surface the service needs; narrowed for tests.
type jobStore interface {
	Create(ctx context.Context, tenantID, userID uuid.UUID, method causal.Method, module int, params JSONB) (*AnalysisJob, error)
	GetForTenant(ctx context.Context, tenantID, id uuid.UUID) (*AnalysisJob, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]AnalysisJob, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
}

// AnalysisService accepts analysis submissions and persists them before
// enqueueing, so the poll endpoint can always resolve an accepted job.
type AnalysisService struct {
	store  jobStore
	perms  authorizer
	flags  flagChecker
	queue  Queue
	logger *slog.Logger
}

func NewAnalysisService(store jobStore, perms authorizer, flags flagChecker, queue Queue) *AnalysisService {
	return &AnalysisService{
		store:  store,
		perms:  perms,
		flags:  flags,
		queue:  queue,
		logger: slog.Default().With("service", "analysis"),
	}
}

// Submit validates, authorizes and persists a new analysis job, then hands it
// to the broker. Gating happens before any row exists: a rejected submission
// leaves no trace in analysis_jobs.
func (s *AnalysisService) Submit(ctx context.Context, tenantID, userID uuid.UUID, roles []string, req *SubmitRequest) (*AnalysisJob, error) {
	if !req.Method.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, req.Method)
	}

	if err := s.perms.Authorize(ctx, tenantID, roles, req.Module, permission.ActionExecute); err != nil {
		return nil, err
	}

	if flag := req.Method.FeatureFlag(); flag != "" {
		enabled, err := s.flags.FlagEnabled(ctx, tenantID, flag)
		if err != nil {
			return nil, fmt.Errorf("failed to check feature flag: %w", err)
		}
		if !enabled {
			return nil, fmt.Errorf("%w: %s", ErrMethodNotAllowed, req.Method)
		}
	}

	params := JSONB(req.Params)
	if params == nil {
		params = JSONB{}
	}
	// The worker pulls the panel for the submitting tenant only.
	params["tenant_id"] = tenantID.String()

	job, err := s.store.Create(ctx, tenantID, userID, req.Method, req.Module, params)
	if err != nil {
		return nil, err
	}

	if err := s.queue.Enqueue(ctx, job); err != nil {
		// The row exists but no message will ever arrive for it. Failing
		// the job keeps the status endpoint truthful.
		if _, markErr := s.store.MarkFailed(ctx, job.ID, "enqueue_failed"); markErr != nil {
			s.logger.Error("failed to mark unenqueued job as failed",
				slog.String("job_id", job.ID.String()), slog.Any("error", markErr))
		}
		return nil, fmt.Errorf("failed to enqueue analysis job: %w", err)
	}

	s.logger.Info("analysis job submitted",
		slog.String("job_id", job.ID.String()),
		slog.String("tenant_id", tenantID.String()),
		slog.String("method", string(req.Method)))

	return job, nil
}

// Get returns one job, scoped to the requesting tenant.
func (s *AnalysisService) Get(ctx context.Context, tenantID, id uuid.UUID) (*AnalysisJob, error) {
	return s.store.GetForTenant(ctx, tenantID, id)
}

// List returns the tenant's most recent jobs.
func (s *AnalysisService) List(ctx context.Context, tenantID uuid.UUID, limit int) ([]AnalysisJob, error) {
	return s.store.ListByTenant(ctx, tenantID, limit)
}
