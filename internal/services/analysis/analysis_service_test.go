package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caisdata/cais/internal/causal"
	"github.com/caisdata/cais/internal/services/permission"
)

type fakeStore struct {
	created   []*AnalysisJob
	failed    map[uuid.UUID]string
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{failed: make(map[uuid.UUID]string)}
}

func (f *fakeStore) Create(ctx context.Context, tenantID, userID uuid.UUID, method causal.Method, module int, params JSONB) (*AnalysisJob, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	job := &AnalysisJob{
		ID:       uuid.New(),
		TenantID: tenantID,
		UserID:   userID,
		Method:   method,
		Module:   module,
		Params:   params,
		Status:   StatusPending,
	}
	f.created = append(f.created, job)
	return job, nil
}

func (f *fakeStore) GetForTenant(ctx context.Context, tenantID, id uuid.UUID) (*AnalysisJob, error) {
	for _, job := range f.created {
		if job.ID == id && job.TenantID == tenantID {
			return job, nil
		}
	}
	return nil, errors.New("analysis job not found")
}

func (f *fakeStore) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]AnalysisJob, error) {
	var out []AnalysisJob
	for _, job := range f.created {
		if job.TenantID == tenantID {
			out = append(out, *job)
		}
	}
	return out, nil
}

func (f *fakeStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	f.failed[id] = reason
	return true, nil
}

type fakeAuthorizer struct {
	err error
}

func (f *fakeAuthorizer) Authorize(ctx context.Context, tenantID uuid.UUID, roles []string, module int, action permission.Action) error {
	return f.err
}

type fakeFlags struct {
	enabled map[string]bool
}

func (f *fakeFlags) FlagEnabled(ctx context.Context, tenantID uuid.UUID, flag string) (bool, error) {
	return f.enabled[flag], nil
}

type fakeQueue struct {
	enqueued []*AnalysisJob
	err      error
}

func (f *fakeQueue) Enqueue(ctx context.Context, job *AnalysisJob) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, job)
	return nil
}

func newTestService() (*AnalysisService, *fakeStore, *fakeAuthorizer, *fakeFlags, *fakeQueue) {
	store := newFakeStore()
	perms := &fakeAuthorizer{}
	flags := &fakeFlags{enabled: map[string]bool{}}
	queue := &fakeQueue{}
	return NewAnalysisService(store, perms, flags, queue), store, perms, flags, queue
}

func TestSubmitRejectsUnknownMethod(t *testing.T) {
	svc, store, _, _, _ := newTestService()

	_, err := svc.Submit(context.Background(), uuid.New(), uuid.New(), []string{"analyst"}, &SubmitRequest{
		Method: causal.Method("bayesian"),
		Module: 1,
	})

	assert.ErrorIs(t, err, ErrUnknownMethod)
	assert.Empty(t, store.created)
}

func TestSubmitDeniedLeavesNoRow(t *testing.T) {
	svc, store, perms, _, queue := newTestService()
	perms.err = permission.ErrAccessDenied

	_, err := svc.Submit(context.Background(), uuid.New(), uuid.New(), []string{"viewer"}, &SubmitRequest{
		Method: causal.MethodDiD,
		Module: 2,
	})

	assert.ErrorIs(t, err, permission.ErrAccessDenied)
	assert.Empty(t, store.created)
	assert.Empty(t, queue.enqueued)
}

func TestSubmitGatedMethodRequiresFlag(t *testing.T) {
	svc, store, _, flags, _ := newTestService()

	_, err := svc.Submit(context.Background(), uuid.New(), uuid.New(), []string{"analyst"}, &SubmitRequest{
		Method: causal.MethodSCM,
		Module: 3,
	})
	assert.ErrorIs(t, err, ErrMethodNotAllowed)
	assert.Empty(t, store.created)

	flags.enabled["scm"] = true

	job, err := svc.Submit(context.Background(), uuid.New(), uuid.New(), []string{"analyst"}, &SubmitRequest{
		Method: causal.MethodSCM,
		Module: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, causal.MethodSCM, job.Method)
}

func TestSubmitPersistsThenEnqueues(t *testing.T) {
	svc, _, _, _, queue := newTestService()
	tenantID := uuid.New()

	job, err := svc.Submit(context.Background(), tenantID, uuid.New(), []string{"analyst"}, &SubmitRequest{
		Method: causal.MethodDiD,
		Module: 1,
		Params: map[string]interface{}{"outcome": "movimentacao_total"},
	})

	require.NoError(t, err)
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, tenantID.String(), job.Params["tenant_id"])
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, job.ID, queue.enqueued[0].ID)
}

func TestSubmitFailsJobWhenEnqueueFails(t *testing.T) {
	svc, store, _, _, queue := newTestService()
	queue.err = errors.New("broker unreachable")

	_, err := svc.Submit(context.Background(), uuid.New(), uuid.New(), []string{"analyst"}, &SubmitRequest{
		Method: causal.MethodDiD,
		Module: 1,
	})

	require.Error(t, err)
	require.Len(t, store.created, 1)
	assert.Equal(t, "enqueue_failed", store.failed[store.created[0].ID])
}

func TestGetIsTenantScoped(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	tenantID := uuid.New()

	job, err := svc.Submit(context.Background(), tenantID, uuid.New(), []string{"analyst"}, &SubmitRequest{
		Method: causal.MethodCompare,
		Module: 4,
	})
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), tenantID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)

	_, err = svc.Get(context.Background(), uuid.New(), job.ID)
	assert.Error(t, err)
}
