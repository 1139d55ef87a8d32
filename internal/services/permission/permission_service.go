package permission

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrAccessDenied signals that no grant matched. It is surfaced as an
// authorization failure, never downgraded to empty results.
var ErrAccessDenied = errors.New("access denied")

// grantSource is the repo surface the service needs; narrowed for tests.
type grantSource interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]ModulePermission, error)
}

// PermissionService answers authorization questions against grant tuples.
// Decisions are pure: no audit side effect here, callers log denials.
type PermissionService struct {
	repo   *PermissionRepo
	source grantSource

	mu    sync.RWMutex
	cache map[uuid.UUID][]ModulePermission
}

func NewPermissionService(repo *PermissionRepo) *PermissionService {
	return &PermissionService{
		repo:   repo,
		source: repo,
		cache:  make(map[uuid.UUID][]ModulePermission),
	}
}

// newServiceWithSource wires an alternate grant source, used by tests.
func newServiceWithSource(source grantSource) *PermissionService {
	return &PermissionService{
		source: source,
		cache:  make(map[uuid.UUID][]ModulePermission),
	}
}

// Decide is the pure decision rule: allow iff at least one of the user's roles
// has an explicit grant for (module, action). Default is deny; absence of
// data is a denial, not an ambiguity.
func Decide(grants []ModulePermission, roles []string, module int, action Action) bool {
	for _, grant := range grants {
		if grant.Module != module || grant.Action != action {
			continue
		}
		for _, role := range roles {
			if grant.Role == role {
				return true
			}
		}
	}
	return false
}

// Authorize loads the tenant's grants and applies the decision rule. Returns
// ErrAccessDenied when no grant matches.
func (s *PermissionService) Authorize(ctx context.Context, tenantID uuid.UUID, roles []string, module int, action Action) error {
	grants, err := s.grantsFor(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to load grants: %w", err)
	}

	if !Decide(grants, roles, module, action) {
		return ErrAccessDenied
	}

	return nil
}

// ListGrants returns the tenant's grants, bypassing the cache so that admin
// screens always see fresh rows.
func (s *PermissionService) ListGrants(ctx context.Context, tenantID uuid.UUID) ([]ModulePermission, error) {
	return s.source.ListByTenant(ctx, tenantID)
}

// CreateGrant validates and inserts a grant, then drops the tenant's cached
// grants.
func (s *PermissionService) CreateGrant(ctx context.Context, tenantID uuid.UUID, req *CreateGrantRequest) (*ModulePermission, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	grant, err := s.repo.Create(ctx, tenantID, req)
	if err != nil {
		return nil, err
	}

	s.Invalidate(tenantID)

	return grant, nil
}

// DeleteGrant removes a grant and drops the tenant's cached grants.
func (s *PermissionService) DeleteGrant(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}

	s.Invalidate(tenantID)

	return nil
}

// Invalidate drops the cached grants of one tenant. The pubsub listener calls
// this when another instance changes grants.
func (s *PermissionService) Invalidate(tenantID uuid.UUID) {
	s.mu.Lock()
	delete(s.cache, tenantID)
	s.mu.Unlock()
}

// InvalidateAll drops every cached grant, used after a listener reconnect when
// notifications may have been missed.
func (s *PermissionService) InvalidateAll() {
	s.mu.Lock()
	s.cache = make(map[uuid.UUID][]ModulePermission)
	s.mu.Unlock()
}

func (s *PermissionService) grantsFor(ctx context.Context, tenantID uuid.UUID) ([]ModulePermission, error) {
	s.mu.RLock()
	grants, ok := s.cache[tenantID]
	s.mu.RUnlock()
	if ok {
		return grants, nil
	}

	grants, err := s.source.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[tenantID] = grants
	s.mu.Unlock()

	return grants, nil
}
