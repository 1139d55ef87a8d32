package jobs

import (
	"github.com/google/uuid"

	"github.com/caisdata/cais/internal/causal"
)

// JobMessage is the queue payload for one analysis execution. The database row
// stays authoritative; the message only routes the work, so a worker always
// reloads the job before acting on it.
type JobMessage struct {
	JobID    uuid.UUID              `json:"job_id"`
	TenantID uuid.UUID              `json:"tenant_id"`
	UserID   uuid.UUID              `json:"user_id"`
	Method   causal.Method          `json:"method"`
	Params   map[string]interface{} `json:"params"`
}
