package querycache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/bytedance/sonic"
)

// PublicScope is the tenant slot used for results that are not tenant-specific.
const PublicScope = "public"

// canonical serializes with sorted map keys so that logically identical payloads
// always produce the same bytes regardless of field order.
var canonical = sonic.Config{SortMapKeys: true}.Froze()

// Key builds the deterministic cache key
// `cais:<module>:<code>:<tenant|public>:<hex digest>`.
func Key(module int, code, tenantScope string, payload map[string]interface{}) (string, error) {
	if tenantScope == "" {
		tenantScope = PublicScope
	}

	body, err := canonical.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize payload: %w", err)
	}

	digest := sha256.Sum256(body)

	return fmt.Sprintf("cais:%d:%s:%s:%s", module, code, tenantScope, hex.EncodeToString(digest[:])), nil
}
