package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// entrySink is the repo surface the service needs; narrowed for tests.
type entrySink interface {
	Insert(ctx context.Context, entry *AuditEntry) error
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]AuditEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditService records events without ever blocking or failing the hot path.
// Record hands the entry to a buffered writer goroutine; when the buffer is
// full the entry is dropped and counted, never queued unboundedly.
type AuditService struct {
	sink      entrySink
	retention time.Duration
	entries   chan *AuditEntry
	done      chan struct{}
	logger    *slog.Logger
}

func NewAuditService(sink entrySink, retention time.Duration) *AuditService {
	s := &AuditService{
		sink:      sink,
		retention: retention,
		entries:   make(chan *AuditEntry, 1024),
		done:      make(chan struct{}),
		logger:    slog.Default().With("service", "audit"),
	}
	go s.writeLoop()
	return s
}

// Record queues an entry for persistence, assigning its id and timestamp.
// Fire and forget: callers never see write errors and never block on a slow
// database.
func (s *AuditService) Record(entry *AuditEntry) {
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now().UTC()

	select {
	case s.entries <- entry:
	default:
		s.logger.Warn("audit buffer full, entry dropped", slog.String("action", entry.Action))
	}
}

func (s *AuditService) writeLoop() {
	defer close(s.done)
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.sink.Insert(ctx, entry); err != nil {
			s.logger.Error("failed to persist audit entry",
				slog.String("action", entry.Action), slog.Any("error", err))
		}
		cancel()
	}
}

// Close drains the buffer and stops the writer.
func (s *AuditService) Close() {
	close(s.entries)
	<-s.done
}

// List returns the tenant's most recent entries.
func (s *AuditService) List(ctx context.Context, tenantID uuid.UUID, limit int) ([]AuditEntry, error) {
	return s.sink.ListByTenant(ctx, tenantID, limit)
}

// Sweep deletes entries older than the retention window.
func (s *AuditService) Sweep(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().Add(-s.retention)
	swept, err := s.sink.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	s.logger.Info("audit retention sweep complete",
		slog.Int64("swept", swept), slog.Time("cutoff", cutoff))

	return swept, nil
}
