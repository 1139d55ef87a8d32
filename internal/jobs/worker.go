package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/caisdata/cais/internal/causal"
	"github.com/caisdata/cais/internal/services/analysis"
	"github.com/caisdata/cais/internal/services/audit"
	"github.com/caisdata/cais/internal/services/notification"
)

// jobStore is the repo surface the worker needs; narrowed for tests.
type jobStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*analysis.AnalysisJob, error)
	Claim(ctx context.Context, id uuid.UUID) (bool, error)
	MarkSucceeded(ctx context.Context, id uuid.UUID, result analysis.JSONB) (bool, error)
	MarkRetrying(ctx context.Context, id uuid.UUID, reason string) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) (bool, error)
}

// messageQueue is the broker surface the worker needs; narrowed for tests.
type messageQueue interface {
	Dequeue(ctx context.Context) (*JobMessage, string, error)
	Ack(ctx context.Context, raw string) error
	Defer(ctx context.Context, raw string, delay time.Duration) error
}

// completionNotifier delivers terminal notices; notification service
// implements it.
type completionNotifier interface {
	NotifyCompletion(ctx context.Context, completion *notification.Completion)
}

// eventRecorder records terminal transitions; audit service implements it.
type eventRecorder interface {
	Record(entry *audit.AuditEntry)
}

// WorkerConfig bounds one worker pool.
type WorkerConfig struct {
	Workers     int
	SoftTimeout time.Duration
	HardTimeout time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

// Worker drains the analysis queue and drives each job through its state
// machine. The database row is the source of truth: a message is acked only
// after the transition it caused is persisted, and every terminal transition
// is a compare-and-set so duplicate deliveries cannot complete a job twice.
type Worker struct {
	store    jobStore
	queue    messageQueue
	runners  map[causal.Method]causal.Runner
	notifier completionNotifier
	recorder eventRecorder
	cfg      WorkerConfig
	logger   *slog.Logger
}

func NewWorker(store jobStore, queue messageQueue, runners map[causal.Method]causal.Runner, notifier completionNotifier, recorder eventRecorder, cfg WorkerConfig) *Worker {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Worker{
		store:    store,
		queue:    queue,
		runners:  runners,
		notifier: notifier,
		recorder: recorder,
		cfg:      cfg,
		logger:   slog.Default().With("component", "analysis-worker"),
	}
}

// Start runs the pool until the context is cancelled, then waits for in-flight
// jobs to settle.
func (w *Worker) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, raw, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("dequeue failed", slog.Any("error", err))
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue
		}

		w.handle(ctx, msg, raw)
	}
}

func (w *Worker) handle(ctx context.Context, msg *JobMessage, raw string) {
	logger := w.logger.With(slog.String("job_id", msg.JobID.String()))

	job, err := w.store.GetByID(ctx, msg.JobID)
	if err != nil {
		// No row to execute against; drop the message.
		logger.Error("job row not loadable, dropping message", slog.Any("error", err))
		w.ack(raw)
		return
	}

	// A redelivery after the terminal state was persisted. The first
	// delivery did the work; this copy only needs to disappear.
	if job.Status.Terminal() {
		w.ack(raw)
		return
	}

	claimed, err := w.store.Claim(ctx, job.ID)
	if err != nil {
		// Leave the message in the processing list; orphan recovery will
		// redeliver it once the database is reachable again.
		logger.Error("claim failed", slog.Any("error", err))
		return
	}
	if !claimed {
		w.ack(raw)
		return
	}

	runner, ok := w.runners[job.Method]
	if !ok {
		w.finishFailed(job, "unknown_method")
		w.ack(raw)
		return
	}

	logger.Info("job claimed", slog.String("method", string(job.Method)), slog.Int("attempt", job.RetryCount+1))

	// The soft limit cancels the computation cooperatively. The job context
	// is deliberately detached from the pool context so a shutdown does not
	// abort a running estimate mid-flight.
	runCtx, cancel := context.WithTimeout(context.Background(), w.cfg.SoftTimeout)
	defer cancel()

	type outcome struct {
		result map[string]interface{}
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, runErr := runner.Run(runCtx, job.Params)
		done <- outcome{result: result, err: runErr}
	}()

	hard := time.NewTimer(w.cfg.HardTimeout)
	defer hard.Stop()

	select {
	case out := <-done:
		if out.err == nil {
			w.finishSucceeded(job, out.result)
			w.ack(raw)
			return
		}
		w.retryOrFail(job, raw, failureReason(out.err))

	case <-hard.C:
		// The computation ignored the soft cancel. Abandon its goroutine
		// and fail the job; nothing it produces can be trusted now.
		cancel()
		logger.Error("job exceeded hard limit, abandoning computation")
		w.finishFailed(job, analysis.ReasonHardTimeout)
		w.ack(raw)
	}
}

// retryOrFail either schedules another attempt or gives up once the retry
// budget is spent.
func (w *Worker) retryOrFail(job *analysis.AnalysisJob, raw, reason string) {
	logger := w.logger.With(slog.String("job_id", job.ID.String()))

	if job.RetryCount >= w.cfg.MaxRetries {
		logger.Warn("retry budget exhausted", slog.String("last_reason", reason))
		w.finishFailed(job, analysis.ReasonRetriesExhausted)
		w.ack(raw)
		return
	}

	ctx, cancelPersist := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelPersist()

	moved, err := w.store.MarkRetrying(ctx, job.ID, reason)
	if err != nil || !moved {
		logger.Error("failed to persist retry, leaving message for redelivery", slog.Any("error", err))
		return
	}

	// Park the next delivery durably before acking the current one. If the
	// defer fails the message stays in the processing list, where orphan
	// recovery redelivers it and the claim accepts a RETRYING job again.
	if err := w.queue.Defer(ctx, raw, w.cfg.RetryDelay); err != nil {
		logger.Error("failed to defer retry, leaving message for redelivery", slog.Any("error", err))
		return
	}

	w.ack(raw)
	logger.Info("job scheduled for retry",
		slog.String("reason", reason), slog.Int("retry", job.RetryCount+1))
}

// finishSucceeded persists the terminal success. Only the winner of the
// compare-and-set notifies, which keeps notifications exactly once per job.
func (w *Worker) finishSucceeded(job *analysis.AnalysisJob, result map[string]interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	moved, err := w.store.MarkSucceeded(ctx, job.ID, analysis.JSONB(result))
	if err != nil {
		w.logger.Error("failed to persist success", slog.String("job_id", job.ID.String()), slog.Any("error", err))
		return
	}
	if moved {
		w.announce(job, string(analysis.StatusSucceeded))
	}
}

func (w *Worker) finishFailed(job *analysis.AnalysisJob, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	moved, err := w.store.MarkFailed(ctx, job.ID, reason)
	if err != nil {
		w.logger.Error("failed to persist failure", slog.String("job_id", job.ID.String()), slog.Any("error", err))
		return
	}
	if moved {
		w.announce(job, string(analysis.StatusFailed))
	}
}

// announce delivers the terminal notice and audit record. Both are best
// effort.
func (w *Worker) announce(job *analysis.AnalysisJob, status string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	w.notifier.NotifyCompletion(ctx, &notification.Completion{
		AnalysisID: job.ID,
		TenantID:   job.TenantID,
		UserID:     job.UserID,
		Method:     string(job.Method),
		Status:     status,
	})

	if w.recorder != nil {
		userID := job.UserID
		w.recorder.Record(&audit.AuditEntry{
			TenantID: job.TenantID,
			UserID:   &userID,
			Action:   audit.ActionAnalysisTerminal,
			Resource: "analysis:" + job.ID.String(),
			Details: audit.Details{
				"method": string(job.Method),
				"status": status,
			},
		})
	}
}

func (w *Worker) ack(raw string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.queue.Ack(ctx, raw); err != nil {
		w.logger.Error("ack failed", slog.Any("error", err))
	}
}

// failureReason maps a run error to the persisted reason string.
func failureReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, causal.ErrCancelled) {
		return analysis.ReasonSoftTimeout
	}
	return err.Error()
}
