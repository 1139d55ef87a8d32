package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/caisdata/cais/internal/config"
)

// GrantChangeEvent represents a permission grant change on another instance.
// A nil TenantID means the whole cache must be reloaded.
type GrantChangeEvent struct {
	TenantID *uuid.UUID
}

// GrantChangeHandler is a callback function for grant changes
type GrantChangeHandler func(event GrantChangeEvent)

// PubSub handles PostgreSQL LISTEN/NOTIFY for permission grant changes, so
// every API instance drops its cached grants when any instance writes one.
type PubSub struct {
	connStr  string
	listener *pq.Listener
	handlers []GrantChangeHandler
	mu       sync.RWMutex
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewPubSub creates a new PubSub instance
func NewPubSub(conf *config.Config) *PubSub {
	connStr := fmt.Sprintf("postgresql://%v:%v@%v:%v/%v",
		conf.DB_USERNAME, conf.DB_PASSWORD, conf.DB_HOST, conf.DB_PORT, conf.DB_NAME)
	if conf.DISABLE_TLS == "true" {
		connStr = connStr + "?sslmode=disable"
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &PubSub{
		connStr:  connStr,
		handlers: make([]GrantChangeHandler, 0),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Subscribe adds a handler for grant change events
func (ps *PubSub) Subscribe(handler GrantChangeHandler) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.handlers = append(ps.handlers, handler)
}

// Start begins listening for notifications
func (ps *PubSub) Start() error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Error("PubSub listener error", slog.Any("error", err))
		}
		if ev == pq.ListenerEventConnectionAttemptFailed {
			slog.Warn("PubSub connection attempt failed, will retry")
		}
		if ev == pq.ListenerEventDisconnected {
			slog.Warn("PubSub disconnected, will attempt reconnect")
		}
		if ev == pq.ListenerEventReconnected {
			slog.Info("PubSub reconnected, triggering full invalidation")
			// Notifications may have been missed while disconnected, so
			// every cached grant is suspect.
			ps.notifyHandlers(GrantChangeEvent{TenantID: nil})
		}
	}

	ps.listener = pq.NewListener(ps.connStr, 10*time.Second, time.Minute, reportProblem)

	if err := ps.listener.Listen("permission_changes"); err != nil {
		return fmt.Errorf("failed to listen on permission_changes channel: %w", err)
	}

	slog.Info("PubSub started listening for permission changes")

	go ps.processNotifications()

	return nil
}

// Stop closes the listener
func (ps *PubSub) Stop() {
	ps.cancel()
	if ps.listener != nil {
		ps.listener.Close()
	}
	slog.Info("PubSub stopped")
}

func (ps *PubSub) processNotifications() {
	for {
		select {
		case <-ps.ctx.Done():
			return
		case notification := <-ps.listener.Notify:
			if notification == nil {
				// Connection lost, will be handled by reportProblem callback
				continue
			}

			// Payload is the tenant UUID whose grants changed.
			tenantID, err := uuid.Parse(notification.Extra)
			if err != nil {
				slog.Warn("Invalid notification payload", slog.String("payload", notification.Extra))
				continue
			}

			slog.Debug("Received permission change notification",
				slog.String("tenant_id", tenantID.String()))

			ps.notifyHandlers(GrantChangeEvent{TenantID: &tenantID})
		}
	}
}

func (ps *PubSub) notifyHandlers(event GrantChangeEvent) {
	ps.mu.RLock()
	handlers := make([]GrantChangeHandler, len(ps.handlers))
	copy(handlers, ps.handlers)
	ps.mu.RUnlock()

	for _, handler := range handlers {
		// Run handlers in goroutines to avoid blocking the notification loop
		go handler(event)
	}
}
