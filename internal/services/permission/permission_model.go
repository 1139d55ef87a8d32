package permission

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action is a permitted operation on a module.
type Action string

const (
	ActionRead    Action = "read"
	ActionExecute Action = "execute"
	ActionWrite   Action = "write"
)

// IsValid reports whether the action is one of the known actions.
func (a Action) IsValid() bool {
	switch a {
	case ActionRead, ActionExecute, ActionWrite:
		return true
	}
	return false
}

// MinModule and MaxModule bound the numbered indicator domains.
const (
	MinModule = 1
	MaxModule = 7
)

// ModulePermission is a grant tuple. At most one row exists per
// (tenant, role, module, action); absence of a row means deny. Grants are
// created and removed by tenant administrators, never updated in place.
type ModulePermission struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TenantID  uuid.UUID `json:"tenant_id" db:"tenant_id"`
	Role      string    `json:"role" db:"role"`
	Module    int       `json:"module" db:"module"`
	Action    Action    `json:"action" db:"action"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CreateGrantRequest is the request to create a new grant.
type CreateGrantRequest struct {
	Role   string `json:"role"`
	Module int    `json:"module"`
	Action Action `json:"action"`
}

// Validate checks the request shape before any I/O.
func (r *CreateGrantRequest) Validate() error {
	if r.Role == "" {
		return fmt.Errorf("role is required")
	}
	if r.Module < MinModule || r.Module > MaxModule {
		return fmt.Errorf("module must be between %d and %d", MinModule, MaxModule)
	}
	if !r.Action.IsValid() {
		return fmt.Errorf("invalid action: %s", r.Action)
	}
	return nil
}
