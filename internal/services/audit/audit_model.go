package audit

import (
	"database/sql/driver"
	"fmt"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// Actions recorded by the platform.
const (
	ActionIndicatorQuery   = "indicator_query"
	ActionAccessDenied     = "access_denied"
	ActionQuotaExceeded    = "quota_exceeded"
	ActionAnalysisSubmit   = "analysis_submit"
	ActionAnalysisTerminal = "analysis_terminal"
	ActionGrantChange      = "grant_change"
)

// Details stores the action payload as a JSONB column.
type Details map[string]interface{}

// Scan implements the sql.Scanner interface for database/sql
func (d *Details) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Details", value)
	}

	return json.Unmarshal(bytes, d)
}

// Value implements the driver.Valuer interface for database/sql
func (d Details) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// AuditEntry is one recorded action. Entries are append-only and swept by
// retention, never updated. UserID is nil for events without an
// authenticated actor.
type AuditEntry struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	TenantID       uuid.UUID  `json:"tenant_id" db:"tenant_id"`
	UserID         *uuid.UUID `json:"user_id,omitempty" db:"user_id"`
	Action         string     `json:"action" db:"action"`
	Resource       string     `json:"resource" db:"resource"`
	StatusCode     int        `json:"status_code" db:"status_code"`
	DurationMs     int64      `json:"duration_ms" db:"duration_ms"`
	BytesProcessed int64      `json:"bytes_processed" db:"bytes_processed"`
	IP             string     `json:"ip" db:"ip"`
	Details        Details    `json:"details,omitempty" db:"details"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
