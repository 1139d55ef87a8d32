package tenant

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type TenantRepo struct {
	db *sqlx.DB
}

func NewTenantRepo(db *sqlx.DB) *TenantRepo {
	return &TenantRepo{db: db}
}

func (r *TenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	query := `
		SELECT id, name, plan, active, flags, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`
	var t Tenant
	err := r.db.GetContext(ctx, &t, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("tenant not found")
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return &t, nil
}

func (r *TenantRepo) Create(ctx context.Context, name, plan string) (*Tenant, error) {
	query := `
		INSERT INTO tenants (id, name, plan, active, flags, created_at, updated_at)
		VALUES ($1, $2, $3, true, $4, now(), now())
		RETURNING id, name, plan, active, flags, created_at, updated_at
	`
	var t Tenant
	err := r.db.GetContext(ctx, &t, query, uuid.New(), name, plan, FeatureFlags{})
	if err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}
	return &t, nil
}

// UpdateFlags replaces the tenant's feature flags.
func (r *TenantRepo) UpdateFlags(ctx context.Context, id uuid.UUID, flags FeatureFlags) error {
	_, err := r.db.ExecContext(ctx, `UPDATE tenants SET flags = $1, updated_at = now() WHERE id = $2`, flags, id)
	if err != nil {
		return fmt.Errorf("failed to update tenant flags: %w", err)
	}
	return nil
}
