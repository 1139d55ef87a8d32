package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type AuditRepo struct {
	db *sqlx.DB
}

func NewAuditRepo(db *sqlx.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Insert(ctx context.Context, entry *AuditEntry) error {
	query := `
		INSERT INTO audit_logs (id, tenant_id, user_id, action, resource, status_code, duration_ms, bytes_processed, ip, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.TenantID, entry.UserID, entry.Action, entry.Resource,
		entry.StatusCode, entry.DurationMs, entry.BytesProcessed, entry.IP,
		entry.Details, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query := `
		SELECT id, tenant_id, user_id, action, resource, status_code, duration_ms, bytes_processed, ip, details, created_at
		FROM audit_logs WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT $2`
	var entries []AuditEntry
	if err := r.db.SelectContext(ctx, &entries, query, tenantID, limit); err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}

// DeleteOlderThan removes entries past the retention horizon and returns how
// many rows were swept.
func (r *AuditRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep audit entries: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read sweep result: %w", err)
	}

	return affected, nil
}
