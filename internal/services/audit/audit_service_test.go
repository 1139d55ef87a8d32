package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSink struct {
	mu      sync.Mutex
	entries []*AuditEntry
	err     error
}

func (m *memSink) Insert(ctx context.Context, entry *AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memSink) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []AuditEntry
	for _, e := range m.entries {
		if e.TenantID == tenantID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memSink) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*AuditEntry
	var swept int64
	for _, e := range m.entries {
		if e.CreatedAt.Before(cutoff) {
			swept++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return swept, nil
}

func (m *memSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func TestRecordPersistsAsynchronously(t *testing.T) {
	sink := &memSink{}
	svc := NewAuditService(sink, 90*24*time.Hour)
	tenantID := uuid.New()
	userID := uuid.New()

	svc.Record(&AuditEntry{
		TenantID:       tenantID,
		UserID:         &userID,
		Action:         ActionIndicatorQuery,
		Resource:       "indicator:IND-1.01",
		StatusCode:     200,
		DurationMs:     12,
		BytesProcessed: 2048,
		IP:             "10.0.0.7",
		Details:        Details{"module": 1},
	})
	svc.Record(&AuditEntry{TenantID: tenantID, UserID: &userID, Action: ActionAccessDenied})
	svc.Close()

	require.Equal(t, 2, sink.count())

	entries, err := svc.List(context.Background(), tenantID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.False(t, first.CreatedAt.IsZero())
	assert.Equal(t, "indicator:IND-1.01", first.Resource)
	assert.Equal(t, 200, first.StatusCode)
	assert.Equal(t, int64(12), first.DurationMs)
	assert.Equal(t, int64(2048), first.BytesProcessed)
	assert.Equal(t, "10.0.0.7", first.IP)
}

func TestRecordAcceptsEntriesWithoutUser(t *testing.T) {
	sink := &memSink{}
	svc := NewAuditService(sink, time.Hour)
	tenantID := uuid.New()

	svc.Record(&AuditEntry{TenantID: tenantID, Action: ActionAnalysisTerminal, Resource: "analysis:unknown"})
	svc.Close()

	entries, err := svc.List(context.Background(), tenantID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].UserID)
}

func TestRecordNeverSurfacesSinkErrors(t *testing.T) {
	sink := &memSink{err: errors.New("db down")}
	svc := NewAuditService(sink, time.Hour)

	assert.NotPanics(t, func() {
		svc.Record(&AuditEntry{TenantID: uuid.New(), Action: ActionQuotaExceeded})
		svc.Close()
	})
}

func TestSweepRemovesOnlyExpiredEntries(t *testing.T) {
	sink := &memSink{}
	svc := NewAuditService(sink, 24*time.Hour)
	defer svc.Close()

	old := &AuditEntry{ID: uuid.New(), TenantID: uuid.New(), Action: ActionIndicatorQuery, CreatedAt: time.Now().UTC().Add(-48 * time.Hour)}
	fresh := &AuditEntry{ID: uuid.New(), TenantID: old.TenantID, Action: ActionIndicatorQuery, CreatedAt: time.Now().UTC()}
	require.NoError(t, sink.Insert(context.Background(), old))
	require.NoError(t, sink.Insert(context.Background(), fresh))

	swept, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)
	assert.Equal(t, 1, sink.count())
}
