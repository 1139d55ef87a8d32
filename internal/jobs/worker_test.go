package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caisdata/cais/internal/causal"
	"github.com/caisdata/cais/internal/services/analysis"
	"github.com/caisdata/cais/internal/services/notification"
)

type memStore struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*analysis.AnalysisJob
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[uuid.UUID]*analysis.AnalysisJob)}
}

func (m *memStore) add(job *analysis.AnalysisJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
}

func (m *memStore) get(id uuid.UUID) analysis.AnalysisJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.jobs[id]
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (*analysis.AnalysisJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, errors.New("analysis job not found")
	}
	copied := *job
	return &copied, nil
}

func (m *memStore) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.jobs[id]
	switch job.Status {
	case analysis.StatusPending, analysis.StatusRetrying, analysis.StatusRunning:
		job.Status = analysis.StatusRunning
		return true, nil
	}
	return false, nil
}

func (m *memStore) MarkSucceeded(ctx context.Context, id uuid.UUID, result analysis.JSONB) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.jobs[id]
	if job.Status != analysis.StatusRunning {
		return false, nil
	}
	job.Status = analysis.StatusSucceeded
	job.Result = result
	job.FailureReason = nil
	return true, nil
}

func (m *memStore) MarkRetrying(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.jobs[id]
	if job.Status != analysis.StatusRunning {
		return false, nil
	}
	job.Status = analysis.StatusRetrying
	job.RetryCount++
	job.FailureReason = &reason
	return true, nil
}

func (m *memStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job := m.jobs[id]
	if job.Status.Terminal() {
		return false, nil
	}
	job.Status = analysis.StatusFailed
	job.FailureReason = &reason
	return true, nil
}

type memQueue struct {
	mu       sync.Mutex
	deferred []string
	acked    []string
	ops      []string
	deferErr error
}

func (q *memQueue) Dequeue(ctx context.Context) (*JobMessage, string, error) {
	return nil, "", nil
}

func (q *memQueue) Ack(ctx context.Context, raw string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acked = append(q.acked, raw)
	q.ops = append(q.ops, "ack")
	return nil
}

func (q *memQueue) Defer(ctx context.Context, raw string, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.deferErr != nil {
		return q.deferErr
	}
	q.deferred = append(q.deferred, raw)
	q.ops = append(q.ops, "defer")
	return nil
}

func (q *memQueue) ackCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.acked)
}

func (q *memQueue) deferCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.deferred)
}

func (q *memQueue) opLog() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.ops...)
}

type countingNotifier struct {
	mu          sync.Mutex
	completions []*notification.Completion
}

func (n *countingNotifier) NotifyCompletion(ctx context.Context, completion *notification.Completion) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completions = append(n.completions, completion)
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.completions)
}

func testWorker(store jobStore, queue messageQueue, notifier completionNotifier, runners map[causal.Method]causal.Runner) *Worker {
	return NewWorker(store, queue, runners, notifier, nil, WorkerConfig{
		Workers:     1,
		SoftTimeout: 500 * time.Millisecond,
		HardTimeout: time.Second,
		MaxRetries:  3,
		RetryDelay:  time.Millisecond,
	})
}

func pendingJob(store *memStore) (*analysis.AnalysisJob, *JobMessage) {
	job := &analysis.AnalysisJob{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		UserID:   uuid.New(),
		Method:   causal.MethodDiD,
		Module:   1,
		Params:   analysis.JSONB{"outcome": "movimentacao_total"},
		Status:   analysis.StatusPending,
	}
	store.add(job)
	return job, &JobMessage{JobID: job.ID, TenantID: job.TenantID, UserID: job.UserID, Method: job.Method}
}

func TestHandleRunsJobToSuccess(t *testing.T) {
	store := newMemStore()
	queue := &memQueue{}
	notifier := &countingNotifier{}
	job, msg := pendingJob(store)

	w := testWorker(store, queue, notifier, map[causal.Method]causal.Runner{
		causal.MethodDiD: causal.RunnerFunc(func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			return map[string]interface{}{"att": 1.5}, nil
		}),
	})

	w.handle(context.Background(), msg, "raw-1")

	got := store.get(job.ID)
	assert.Equal(t, analysis.StatusSucceeded, got.Status)
	assert.Equal(t, 1.5, got.Result["att"])
	assert.Equal(t, 1, queue.ackCount())
	require.Equal(t, 1, notifier.count())
	assert.Equal(t, "succeeded", notifier.completions[0].Status)
}

func TestHandleRedeliveryAfterTerminalOnlyAcks(t *testing.T) {
	store := newMemStore()
	queue := &memQueue{}
	notifier := &countingNotifier{}
	job, msg := pendingJob(store)

	w := testWorker(store, queue, notifier, map[causal.Method]causal.Runner{
		causal.MethodDiD: causal.RunnerFunc(func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			return map[string]interface{}{"att": 1.0}, nil
		}),
	})

	w.handle(context.Background(), msg, "raw-1")
	w.handle(context.Background(), msg, "raw-1-redelivery")

	got := store.get(job.ID)
	assert.Equal(t, analysis.StatusSucceeded, got.Status)
	assert.Equal(t, 2, queue.ackCount())
	assert.Equal(t, 1, notifier.count(), "redelivery must not notify again")
}

func TestHandleRetriesThenExhausts(t *testing.T) {
	store := newMemStore()
	queue := &memQueue{}
	notifier := &countingNotifier{}
	job, msg := pendingJob(store)

	w := testWorker(store, queue, notifier, map[causal.Method]causal.Runner{
		causal.MethodDiD: causal.RunnerFunc(func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			return nil, errors.New("warehouse unreachable")
		}),
	})

	// Attempts 1 through 3 move the job back to RETRYING.
	for attempt := 1; attempt <= 3; attempt++ {
		w.handle(context.Background(), msg, "raw")
		got := store.get(job.ID)
		require.Equal(t, analysis.StatusRetrying, got.Status)
		require.Equal(t, attempt, got.RetryCount)
	}

	// The fourth attempt exceeds the budget.
	w.handle(context.Background(), msg, "raw")

	got := store.get(job.ID)
	assert.Equal(t, analysis.StatusFailed, got.Status)
	require.NotNil(t, got.FailureReason)
	assert.Equal(t, analysis.ReasonRetriesExhausted, *got.FailureReason)
	assert.Equal(t, 3, queue.deferCount(), "each retry parks one delivery")
	require.Equal(t, 1, notifier.count())
	assert.Equal(t, "failed", notifier.completions[0].Status)
}

func TestRetryParksDeliveryBeforeAcking(t *testing.T) {
	store := newMemStore()
	queue := &memQueue{}
	notifier := &countingNotifier{}
	job, msg := pendingJob(store)

	w := testWorker(store, queue, notifier, map[causal.Method]causal.Runner{
		causal.MethodDiD: causal.RunnerFunc(func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			return nil, errors.New("warehouse unreachable")
		}),
	})
	w.cfg.RetryDelay = time.Hour

	w.handle(context.Background(), msg, "raw")

	got := store.get(job.ID)
	require.Equal(t, analysis.StatusRetrying, got.Status)

	// The next delivery must be durable before the current one is acked;
	// otherwise a crash inside the retry delay strands the job in RETRYING
	// with no message on any queue.
	require.Equal(t, 1, queue.deferCount())
	require.Equal(t, 1, queue.ackCount())
	assert.Equal(t, []string{"defer", "ack"}, queue.opLog())
}

func TestRetryKeepsMessageWhenDeferFails(t *testing.T) {
	store := newMemStore()
	queue := &memQueue{deferErr: errors.New("redis down")}
	notifier := &countingNotifier{}
	job, msg := pendingJob(store)

	w := testWorker(store, queue, notifier, map[causal.Method]causal.Runner{
		causal.MethodDiD: causal.RunnerFunc(func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			return nil, errors.New("warehouse unreachable")
		}),
	})

	w.handle(context.Background(), msg, "raw")

	// Not acked: the message stays in the processing list for orphan
	// recovery, and the claim accepts a RETRYING job on redelivery.
	got := store.get(job.ID)
	assert.Equal(t, analysis.StatusRetrying, got.Status)
	assert.Zero(t, queue.ackCount())
}

func TestHandleSoftTimeoutIsRetryable(t *testing.T) {
	store := newMemStore()
	queue := &memQueue{}
	notifier := &countingNotifier{}
	job, msg := pendingJob(store)

	w := testWorker(store, queue, notifier, map[causal.Method]causal.Runner{
		causal.MethodDiD: causal.RunnerFunc(func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}),
	})
	w.cfg.SoftTimeout = 10 * time.Millisecond

	w.handle(context.Background(), msg, "raw")

	got := store.get(job.ID)
	assert.Equal(t, analysis.StatusRetrying, got.Status)
	require.NotNil(t, got.FailureReason)
	assert.Equal(t, analysis.ReasonSoftTimeout, *got.FailureReason)
	assert.Zero(t, notifier.count(), "a retryable outcome is not terminal")
}

func TestHandleHardTimeoutFailsJob(t *testing.T) {
	store := newMemStore()
	queue := &memQueue{}
	notifier := &countingNotifier{}
	job, msg := pendingJob(store)

	w := testWorker(store, queue, notifier, map[causal.Method]causal.Runner{
		causal.MethodDiD: causal.RunnerFunc(func(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
			// Ignores the cancel entirely, simulating a wedged computation.
			time.Sleep(5 * time.Second)
			return nil, nil
		}),
	})
	w.cfg.SoftTimeout = 10 * time.Millisecond
	w.cfg.HardTimeout = 50 * time.Millisecond

	w.handle(context.Background(), msg, "raw")

	got := store.get(job.ID)
	assert.Equal(t, analysis.StatusFailed, got.Status)
	require.NotNil(t, got.FailureReason)
	assert.Equal(t, analysis.ReasonHardTimeout, *got.FailureReason)
	assert.Equal(t, 1, queue.ackCount())
	require.Equal(t, 1, notifier.count())
}

func TestHandleUnknownMethodFailsImmediately(t *testing.T) {
	store := newMemStore()
	queue := &memQueue{}
	notifier := &countingNotifier{}
	job, msg := pendingJob(store)

	w := testWorker(store, queue, notifier, map[causal.Method]causal.Runner{})

	w.handle(context.Background(), msg, "raw")

	got := store.get(job.ID)
	assert.Equal(t, analysis.StatusFailed, got.Status)
	require.NotNil(t, got.FailureReason)
	assert.Equal(t, "unknown_method", *got.FailureReason)
}

func TestHandleMissingRowDropsMessage(t *testing.T) {
	store := newMemStore()
	queue := &memQueue{}
	notifier := &countingNotifier{}

	w := testWorker(store, queue, notifier, map[causal.Method]causal.Runner{})

	w.handle(context.Background(), &JobMessage{JobID: uuid.New()}, "raw-orphan")

	assert.Equal(t, 1, queue.ackCount())
	assert.Zero(t, notifier.count())
}
