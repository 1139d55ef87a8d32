package quota

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePlan(t *testing.T) {
	assert.Equal(t, PlanBasic, NormalizePlan("basic"))
	assert.Equal(t, PlanPro, NormalizePlan("pro"))
	assert.Equal(t, PlanEnterprise, NormalizePlan("enterprise"))

	// Anything else resolves to basic
	assert.Equal(t, PlanBasic, NormalizePlan(""))
	assert.Equal(t, PlanBasic, NormalizePlan("platinum"))
	assert.Equal(t, PlanBasic, NormalizePlan("PRO"))
}

func TestCeiling(t *testing.T) {
	assert.Equal(t, int64(100), Ceiling("basic"))
	assert.Equal(t, int64(500), Ceiling("pro"))
	assert.Equal(t, int64(2000), Ceiling("enterprise"))
	assert.Equal(t, int64(100), Ceiling("garbage"))
}

func TestGateEnforcesCeiling(t *testing.T) {
	gate := NewGate(NewMemoryStorage(), time.Hour)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		require.NoError(t, gate.Check(ctx, "tenant-1", "basic"))
	}

	err := gate.Check(ctx, "tenant-1", "basic")
	assert.ErrorIs(t, err, ErrQuotaExceeded)
}

func TestGateIsolatesTenants(t *testing.T) {
	gate := NewGate(NewMemoryStorage(), time.Hour)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		require.NoError(t, gate.Check(ctx, "tenant-1", "basic"))
	}

	assert.ErrorIs(t, gate.Check(ctx, "tenant-1", "basic"), ErrQuotaExceeded)
	assert.NoError(t, gate.Check(ctx, "tenant-2", "basic"))
}

type failingStorage struct{}

func (failingStorage) Allow(ctx context.Context, tenantID string, limit int64, window time.Duration) (bool, error) {
	return false, errors.New("backend down")
}

func TestGateFailsOpenOnStorageError(t *testing.T) {
	gate := NewGate(failingStorage{}, time.Hour)

	assert.NoError(t, gate.Check(context.Background(), "tenant-1", "basic"))
}
