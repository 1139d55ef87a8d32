package analysis

import (
	"database/sql/driver"
	"fmt"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/caisdata/cais/internal/causal"
)

// Status is the analysis job state machine:
//
//	PENDING -> RUNNING -> SUCCEEDED (terminal)
//	                   -> FAILED (terminal)
//	                   -> RETRYING -> RUNNING
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusRetrying  Status = "retrying"
)

// Terminal reports whether the status is immutable.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Failure reasons recorded with the job.
const (
	ReasonSoftTimeout      = "soft_timeout"
	ReasonHardTimeout      = "hard_timeout"
	ReasonRetriesExhausted = "retries_exhausted"
)

// JSONB stores a generic document column.
type JSONB map[string]interface{}

// Scan implements the sql.Scanner interface for database/sql
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONB", value)
	}

	return json.Unmarshal(bytes, j)
}

// Value implements the driver.Valuer interface for database/sql
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// AnalysisJob is one causal-inference computation. The row is created on
// submission and mutated only by the worker executing it; terminal states are
// immutable.
type AnalysisJob struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	TenantID      uuid.UUID     `json:"tenant_id" db:"tenant_id"`
	UserID        uuid.UUID     `json:"user_id" db:"user_id"`
	Method        causal.Method `json:"method" db:"method"`
	Module        int           `json:"module" db:"module"`
	Params        JSONB         `json:"params" db:"params"`
	Status        Status        `json:"status" db:"status"`
	RetryCount    int           `json:"retry_count" db:"retry_count"`
	FailureReason *string       `json:"failure_reason,omitempty" db:"failure_reason"`
	Result        JSONB         `json:"result,omitempty" db:"result"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// SubmitRequest is the request to start a new analysis.
type SubmitRequest struct {
	Method causal.Method          `json:"method"`
	Module int                    `json:"module"`
	Params map[string]interface{} `json:"params"`
}
