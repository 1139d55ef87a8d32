package tenant

import (
	"database/sql/driver"
	"fmt"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// FeatureFlags gates experimental causal methods per tenant. Flags are named
// boolean fields, not string lookups.
type FeatureFlags struct {
	SCM          bool `json:"scm"`
	AugmentedSCM bool `json:"augmented_scm"`
}

// Enabled resolves a flag by name. Unknown names are disabled.
func (f FeatureFlags) Enabled(name string) bool {
	switch name {
	case "scm":
		return f.SCM
	case "augmented_scm":
		return f.AugmentedSCM
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for database/sql
func (f *FeatureFlags) Scan(value interface{}) error {
	if value == nil {
		*f = FeatureFlags{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into FeatureFlags", value)
	}

	return json.Unmarshal(bytes, f)
}

// Value implements the driver.Valuer interface for database/sql
func (f FeatureFlags) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Tenant is the organization boundary; all other rows hang off it.
type Tenant struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Plan      string       `json:"plan" db:"plan"`
	Active    bool         `json:"active" db:"active"`
	Flags     FeatureFlags `json:"flags" db:"flags"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}
