package permission

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PermissionRepo struct {
	db *sqlx.DB
}

func NewPermissionRepo(db *sqlx.DB) *PermissionRepo {
	return &PermissionRepo{db: db}
}

// ListByTenant returns every grant of one tenant.
func (r *PermissionRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]ModulePermission, error) {
	query := `
		SELECT id, tenant_id, role, module, action, created_at
		FROM module_permissions
		WHERE tenant_id = $1
		ORDER BY role, module, action
	`
	var grants []ModulePermission
	if err := r.db.SelectContext(ctx, &grants, query, tenantID); err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	return grants, nil
}

// Create inserts a grant. The unique index on (tenant_id, role, module, action)
// rejects duplicates.
func (r *PermissionRepo) Create(ctx context.Context, tenantID uuid.UUID, req *CreateGrantRequest) (*ModulePermission, error) {
	query := `
		INSERT INTO module_permissions (id, tenant_id, role, module, action, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, tenant_id, role, module, action, created_at
	`
	var grant ModulePermission
	err := r.db.GetContext(ctx, &grant, query, uuid.New(), tenantID, req.Role, req.Module, req.Action)
	if err != nil {
		return nil, fmt.Errorf("failed to create grant: %w", err)
	}
	return &grant, nil
}

// Delete removes a grant by id, scoped to the tenant.
func (r *PermissionRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM module_permissions WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("grant not found")
	}

	return nil
}
