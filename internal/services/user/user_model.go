package user

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// User belongs to exactly one tenant and carries a set of role labels. Roles
// are independent of each other, not hierarchical.
type User struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	TenantID     uuid.UUID      `json:"tenant_id" db:"tenant_id"`
	Email        string         `json:"email" db:"email"`
	Name         string         `json:"name" db:"name"`
	PasswordHash *string        `json:"-" db:"password_hash"`
	Roles        pq.StringArray `json:"roles" db:"roles"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}
