package permission

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grant(tenantID uuid.UUID, role string, module int, action Action) ModulePermission {
	return ModulePermission{
		ID:       uuid.New(),
		TenantID: tenantID,
		Role:     role,
		Module:   module,
		Action:   action,
	}
}

func TestDecideDefaultDeny(t *testing.T) {
	// No grants at all: every combination denies.
	assert.False(t, Decide(nil, []string{"admin", "analyst"}, 1, ActionRead))

	tenantID := uuid.New()
	grants := []ModulePermission{grant(tenantID, "analyst", 2, ActionRead)}

	// Wrong module, wrong action, wrong role: all deny.
	assert.False(t, Decide(grants, []string{"analyst"}, 3, ActionRead))
	assert.False(t, Decide(grants, []string{"analyst"}, 2, ActionExecute))
	assert.False(t, Decide(grants, []string{"viewer"}, 2, ActionRead))
}

func TestDecideAnyRoleGrantSuffices(t *testing.T) {
	tenantID := uuid.New()
	grants := []ModulePermission{
		grant(tenantID, "analyst", 5, ActionExecute),
	}

	// Roles are independent, not hierarchical: one matching role is enough.
	assert.True(t, Decide(grants, []string{"viewer", "analyst"}, 5, ActionExecute))
	assert.False(t, Decide(grants, []string{"viewer"}, 5, ActionExecute))
}

type stubGrantSource struct {
	grants []ModulePermission
	calls  int
}

func (s *stubGrantSource) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]ModulePermission, error) {
	s.calls++
	return s.grants, nil
}

func TestAuthorizeDeniesWithoutGrant(t *testing.T) {
	svc := newServiceWithSource(&stubGrantSource{})

	err := svc.Authorize(context.Background(), uuid.New(), []string{"admin"}, 1, ActionRead)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestAuthorizeAllowsWithGrantAndCaches(t *testing.T) {
	tenantID := uuid.New()
	source := &stubGrantSource{grants: []ModulePermission{grant(tenantID, "admin", 4, ActionWrite)}}
	svc := newServiceWithSource(source)

	ctx := context.Background()
	require.NoError(t, svc.Authorize(ctx, tenantID, []string{"admin"}, 4, ActionWrite))
	require.NoError(t, svc.Authorize(ctx, tenantID, []string{"admin"}, 4, ActionWrite))
	assert.Equal(t, 1, source.calls)

	// Invalidation forces a reload on the next decision.
	svc.Invalidate(tenantID)
	require.NoError(t, svc.Authorize(ctx, tenantID, []string{"admin"}, 4, ActionWrite))
	assert.Equal(t, 2, source.calls)
}

func TestCreateGrantRequestValidate(t *testing.T) {
	valid := CreateGrantRequest{Role: "analyst", Module: 3, Action: ActionRead}
	assert.NoError(t, valid.Validate())

	missingRole := CreateGrantRequest{Module: 3, Action: ActionRead}
	assert.Error(t, missingRole.Validate())

	badModule := CreateGrantRequest{Role: "analyst", Module: 8, Action: ActionRead}
	assert.Error(t, badModule.Validate())

	badAction := CreateGrantRequest{Role: "analyst", Module: 3, Action: "delete"}
	assert.Error(t, badAction.Validate())
}
