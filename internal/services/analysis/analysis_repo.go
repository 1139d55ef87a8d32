package analysis

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/caisdata/cais/internal/causal"
)

type AnalysisRepo struct {
	db *sqlx.DB
}

func NewAnalysisRepo(db *sqlx.DB) *AnalysisRepo {
	return &AnalysisRepo{db: db}
}

const jobColumns = `id, tenant_id, user_id, method, module, params, status, retry_count, failure_reason, result, created_at, updated_at`

func (r *AnalysisRepo) Create(ctx context.Context, tenantID, userID uuid.UUID, method causal.Method, module int, params JSONB) (*AnalysisJob, error) {
	query := `
		INSERT INTO analysis_jobs (id, tenant_id, user_id, method, module, params, status, retry_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, now(), now())
		RETURNING ` + jobColumns
	var job AnalysisJob
	err := r.db.GetContext(ctx, &job, query, uuid.New(), tenantID, userID, method, module, params, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis job: %w", err)
	}
	return &job, nil
}

func (r *AnalysisRepo) GetByID(ctx context.Context, id uuid.UUID) (*AnalysisJob, error) {
	query := `SELECT ` + jobColumns + ` FROM analysis_jobs WHERE id = $1`
	var job AnalysisJob
	err := r.db.GetContext(ctx, &job, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("analysis job not found")
		}
		return nil, fmt.Errorf("failed to get analysis job: %w", err)
	}
	return &job, nil
}

// GetForTenant scopes the lookup to a tenant for the status-poll endpoint.
func (r *AnalysisRepo) GetForTenant(ctx context.Context, tenantID, id uuid.UUID) (*AnalysisJob, error) {
	query := `SELECT ` + jobColumns + ` FROM analysis_jobs WHERE id = $1 AND tenant_id = $2`
	var job AnalysisJob
	err := r.db.GetContext(ctx, &job, query, id, tenantID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("analysis job not found")
		}
		return nil, fmt.Errorf("failed to get analysis job: %w", err)
	}
	return &job, nil
}

func (r *AnalysisRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]AnalysisJob, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT ` + jobColumns + ` FROM analysis_jobs WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2`
	var jobs []AnalysisJob
	if err := r.db.SelectContext(ctx, &jobs, query, tenantID, limit); err != nil {
		return nil, fmt.Errorf("failed to list analysis jobs: %w", err)
	}
	return jobs, nil
}

// Claim moves the job to RUNNING iff its current status still allows a claim.
// RUNNING is claimable again because a redelivered message means the previous
// worker died before acking; the single in-flight message copy keeps claims
// exclusive. Returns false when the job is already terminal.
func (r *AnalysisRepo) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.transition(ctx,
		`UPDATE analysis_jobs SET status = $1, updated_at = now()
		 WHERE id = $2 AND status = ANY($3)`,
		StatusRunning, id, pq.Array(statusList(StatusPending, StatusRetrying, StatusRunning)))
}

// MarkSucceeded records the terminal success with its result. Only the
// RUNNING owner can complete, so the transition fires at most once.
func (r *AnalysisRepo) MarkSucceeded(ctx context.Context, id uuid.UUID, result JSONB) (bool, error) {
	return r.transition(ctx,
		`UPDATE analysis_jobs SET status = $1, result = $4, failure_reason = NULL, updated_at = now()
		 WHERE id = $2 AND status = $3`,
		StatusSucceeded, id, StatusRunning, result)
}

// MarkRetrying schedules another attempt and bumps the retry counter.
func (r *AnalysisRepo) MarkRetrying(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	return r.transition(ctx,
		`UPDATE analysis_jobs SET status = $1, retry_count = retry_count + 1, failure_reason = $4, updated_at = now()
		 WHERE id = $2 AND status = $3`,
		StatusRetrying, id, StatusRunning, reason)
}

// MarkFailed records the terminal failure. Any non-terminal status may fail;
// a job whose enqueue was lost fails straight from PENDING.
func (r *AnalysisRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	return r.transition(ctx,
		`UPDATE analysis_jobs SET status = $1, failure_reason = $4, updated_at = now()
		 WHERE id = $2 AND status = ANY($3)`,
		StatusFailed, id, pq.Array(statusList(StatusPending, StatusRetrying, StatusRunning)), reason)
}

func (r *AnalysisRepo) transition(ctx context.Context, query string, args ...interface{}) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to transition analysis job: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read transition result: %w", err)
	}

	return affected > 0, nil
}

func statusList(statuses ...Status) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
