package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/caisdata/cais/internal/services/analysis"
)

const (
	// AnalysisQueue is the dedicated queue for causal-analysis jobs, kept
	// apart from the default queue so indicator traffic never starves it.
	AnalysisQueue   = "cais:queue:analysis"
	DefaultQueue    = "cais:queue:default"
	processingSlot  = ":processing"
	delayedSlot     = ":delayed"
	heartbeatSlot   = ":worker:"
	heartbeatTTL    = 30 * time.Second
	dequeueBlocking = 5 * time.Second
	promoteBatch    = 100
)

// RedisBroker delivers job messages at least once. Enqueue pushes onto a list;
// Dequeue atomically moves one message into this instance's processing list
// where it stays until acked, so a crashed worker's message survives for
// redelivery. Each instance owns its processing list and advertises liveness
// through a heartbeat key, which lets RequeueOrphans reclaim the lists of dead
// instances without touching in-flight work of live ones.
type RedisBroker struct {
	client   *redis.Client
	queue    string
	instance string
	logger   *slog.Logger
}

func NewRedisBroker(client *redis.Client, queue string) *RedisBroker {
	instance := uuid.NewString()
	return &RedisBroker{
		client:   client,
		queue:    queue,
		instance: instance,
		logger:   slog.Default().With("component", "broker", "queue", queue, "instance", instance),
	}
}

func (b *RedisBroker) processingList() string {
	return b.queue + processingSlot + ":" + b.instance
}

func (b *RedisBroker) delayedSet() string {
	return b.queue + delayedSlot
}

func (b *RedisBroker) heartbeatKey(instance string) string {
	return b.queue + heartbeatSlot + instance
}

// Enqueue publishes a persisted job. Implements the submission path's queue
// dependency.
func (b *RedisBroker) Enqueue(ctx context.Context, job *analysis.AnalysisJob) error {
	msg := JobMessage{
		JobID:    job.ID,
		TenantID: job.TenantID,
		UserID:   job.UserID,
		Method:   job.Method,
		Params:   job.Params,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode job message: %w", err)
	}

	if err := b.client.LPush(ctx, b.queue, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job message: %w", err)
	}

	return nil
}

// Defer parks a delivered message in the delayed set until readyAt, making the
// next delivery durable before the caller acks the current one. A crash after
// Defer at worst promotes the message twice, which redelivery already
// tolerates.
func (b *RedisBroker) Defer(ctx context.Context, raw string, delay time.Duration) error {
	readyAt := float64(time.Now().Add(delay).UnixMilli())
	if err := b.client.ZAdd(ctx, b.delayedSet(), redis.Z{Score: readyAt, Member: raw}).Err(); err != nil {
		return fmt.Errorf("failed to defer job message: %w", err)
	}
	return nil
}

// Dequeue blocks for up to the polling interval and returns the next message
// plus its raw payload, which the caller must hand back to Ack. Returns a nil
// message when the queue stayed empty.
func (b *RedisBroker) Dequeue(ctx context.Context) (*JobMessage, string, error) {
	b.beat(ctx)
	b.promoteDue(ctx)

	raw, err := b.client.BLMove(ctx, b.queue, b.processingList(), "RIGHT", "LEFT", dequeueBlocking).Result()
	if err == redis.Nil {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to dequeue job message: %w", err)
	}

	var msg JobMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		// Corrupt payloads are dropped, they can never be executed.
		b.logger.Error("dropping undecodable job message", slog.Any("error", err))
		if ackErr := b.Ack(ctx, raw); ackErr != nil {
			b.logger.Error("failed to drop corrupt message", slog.Any("error", ackErr))
		}
		return nil, "", nil
	}

	return &msg, raw, nil
}

// Ack removes a delivered message from this instance's processing list.
// Callers ack only after the transition the delivery caused is persisted and,
// for retries, after the replacement delivery is parked in the delayed set.
func (b *RedisBroker) Ack(ctx context.Context, raw string) error {
	if err := b.client.LRem(ctx, b.processingList(), 1, raw).Err(); err != nil {
		return fmt.Errorf("failed to ack job message: %w", err)
	}
	return nil
}

// beat refreshes this instance's liveness key. Skipping a beat is harmless as
// long as the instance beats again before the TTL lapses.
func (b *RedisBroker) beat(ctx context.Context) {
	if err := b.client.Set(ctx, b.heartbeatKey(b.instance), strconv.FormatInt(time.Now().Unix(), 10), heartbeatTTL).Err(); err != nil {
		b.logger.Error("failed to refresh worker heartbeat", slog.Any("error", err))
	}
}

// promoteDue moves delayed messages whose ready time has passed back onto the
// queue. Promotion is LPush-then-ZRem so a crash in between duplicates a
// delivery rather than losing one.
func (b *RedisBroker) promoteDue(ctx context.Context) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	due, err := b.client.ZRangeByScore(ctx, b.delayedSet(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   now,
		Count: promoteBatch,
	}).Result()
	if err != nil {
		b.logger.Error("failed to read delayed messages", slog.Any("error", err))
		return
	}

	for _, raw := range due {
		if err := b.client.LPush(ctx, b.queue, raw).Err(); err != nil {
			b.logger.Error("failed to promote delayed message", slog.Any("error", err))
			return
		}
		if err := b.client.ZRem(ctx, b.delayedSet(), raw).Err(); err != nil {
			b.logger.Error("failed to clear promoted message", slog.Any("error", err))
			return
		}
	}
}

// RequeueOrphans moves messages stranded in the processing lists of dead
// instances back onto the queue. An instance is dead when its heartbeat key
// has lapsed; live instances keep their in-flight messages. Called at worker
// startup and periodically; the at-least-once contract makes the resulting
// redelivery safe.
func (b *RedisBroker) RequeueOrphans(ctx context.Context) (int, error) {
	moved := 0
	prefix := b.queue + processingSlot + ":"

	var cursor uint64
	for {
		keys, next, err := b.client.Scan(ctx, cursor, prefix+"*", promoteBatch).Result()
		if err != nil {
			return moved, fmt.Errorf("failed to scan processing lists: %w", err)
		}

		for _, key := range keys {
			instance := strings.TrimPrefix(key, prefix)
			if instance == b.instance {
				continue
			}

			alive, err := b.client.Exists(ctx, b.heartbeatKey(instance)).Result()
			if err != nil {
				return moved, fmt.Errorf("failed to check worker liveness: %w", err)
			}
			if alive > 0 {
				continue
			}

			drained, err := b.drain(ctx, key)
			moved += drained
			if err != nil {
				return moved, err
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if moved > 0 {
		b.logger.Info("requeued orphaned job messages", slog.Int("count", moved))
	}

	return moved, nil
}

func (b *RedisBroker) drain(ctx context.Context, processing string) (int, error) {
	moved := 0
	for {
		_, err := b.client.LMove(ctx, processing, b.queue, "RIGHT", "LEFT").Result()
		if err == redis.Nil {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("failed to requeue orphaned message: %w", err)
		}
		moved++
	}
}
