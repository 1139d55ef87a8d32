package tenant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// TenantService handles business logic for tenants.
type TenantService struct {
	repo *TenantRepo
}

func NewTenantService(repo *TenantRepo) *TenantService {
	return &TenantService{repo: repo}
}

func (s *TenantService) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return t, nil
}

// FlagEnabled reports whether a tenant has a feature flag enabled. Inactive
// tenants have every flag disabled.
func (s *TenantService) FlagEnabled(ctx context.Context, id uuid.UUID, flag string) (bool, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to get tenant: %w", err)
	}
	if !t.Active {
		return false, nil
	}
	return t.Flags.Enabled(flag), nil
}

func (s *TenantService) Create(ctx context.Context, name, plan string) (*Tenant, error) {
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	t, err := s.repo.Create(ctx, name, plan)
	if err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}
	return t, nil
}

func (s *TenantService) UpdateFlags(ctx context.Context, id uuid.UUID, flags FeatureFlags) error {
	if err := s.repo.UpdateFlags(ctx, id, flags); err != nil {
		return fmt.Errorf("failed to update flags: %w", err)
	}
	return nil
}
