package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/globalcomix/claude-agent/internal/logging"
	"github.com/globalcomix/claude-agent/internal/payload"
)

// Redis keys shared by the server, scheduler and CLI
const (
	pendingKey    = "claude-agent:review-queue"
	processingKey = "claude-agent:processing"
	failedKey     = "claude-agent:failed"
)

// Queue is a Redis-backed job queue.
// Pending items live on a list, in-flight items in a hash keyed by job ID,
// and exhausted items on a failed list for operator inspection.
type Queue struct {
	rdb *redis.Client
}

// Stats summarizes queue depth
type Stats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Failed     int64 `json:"failed"`
}

// New connects to Redis and verifies the connection
func New(ctx context.Context, redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &Queue{rdb: rdb}, nil
}

// NewWithClient wraps an existing Redis client (used by tests)
func NewWithClient(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

// Close releases the Redis connection
func (q *Queue) Close() error {
	return q.rdb.Close()
}

// Push enqueues a payload and returns the generated job ID
func (q *Queue) Push(ctx context.Context, p payload.JobPayload) (string, error) {
	item := payload.QueueItem{
		ID:        uuid.NewString(),
		Payload:   p,
		CreatedAt: time.Now().UTC(),
		Attempts:  0,
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return "", fmt.Errorf("marshaling queue item: %w", err)
	}
	if err := q.rdb.RPush(ctx, pendingKey, raw).Err(); err != nil {
		return "", fmt.Errorf("pushing queue item: %w", err)
	}
	logging.JobInfo(item.ID, "Queued "+p.Describe())
	return item.ID, nil
}

// PopBlocking waits up to timeout for a pending item.
// Returns (nil, nil) when the wait times out.
func (q *Queue) PopBlocking(ctx context.Context, timeout time.Duration) (*payload.QueueItem, error) {
	res, err := q.rdb.BLPop(ctx, timeout, pendingKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("popping queue item: %w", err)
	}
	// BLPOP returns [key, value]
	var item payload.QueueItem
	if err := json.Unmarshal([]byte(res[1]), &item); err != nil {
		return nil, fmt.Errorf("parsing queue item: %w", err)
	}
	return &item, nil
}

// MarkProcessing records an item as in-flight
func (q *Queue) MarkProcessing(ctx context.Context, item *payload.QueueItem) error {
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("marshaling queue item: %w", err)
	}
	return q.rdb.HSet(ctx, processingKey, item.ID, raw).Err()
}

// Complete removes a finished item from the processing set
func (q *Queue) Complete(ctx context.Context, id string) error {
	return q.rdb.HDel(ctx, processingKey, id).Err()
}

// Fail moves an item from processing to the failed list, counting the
// attempt that just failed
func (q *Queue) Fail(ctx context.Context, item *payload.QueueItem, reason string) error {
	item.Attempts++
	failed := payload.FailedItem{
		Item:     *item,
		Error:    reason,
		FailedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(failed)
	if err != nil {
		return fmt.Errorf("marshaling failed item: %w", err)
	}
	pipe := q.rdb.TxPipeline()
	pipe.HDel(ctx, processingKey, item.ID)
	pipe.RPush(ctx, failedKey, raw)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording failed item: %w", err)
	}
	logging.JobWarn(item.ID, "Job failed: "+reason)
	return nil
}

// Stats returns pending/processing/failed counts
func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	pipe := q.rdb.Pipeline()
	pending := pipe.LLen(ctx, pendingKey)
	processing := pipe.HLen(ctx, processingKey)
	failed := pipe.LLen(ctx, failedKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return stats, fmt.Errorf("reading queue stats: %w", err)
	}
	stats.Pending = pending.Val()
	stats.Processing = processing.Val()
	stats.Failed = failed.Val()
	return stats, nil
}

// ListFailed returns up to limit failed items, oldest first
func (q *Queue) ListFailed(ctx context.Context, limit int64) ([]payload.FailedItem, error) {
	raws, err := q.rdb.LRange(ctx, failedKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing failed items: %w", err)
	}
	items := make([]payload.FailedItem, 0, len(raws))
	for _, raw := range raws {
		var item payload.FailedItem
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			logging.Warn("Skipping unreadable failed item: %v", err)
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// RetryFailed moves a failed item back onto the pending queue unchanged;
// the attempt was already counted when the item failed.
// Returns false when no failed item has the given ID.
func (q *Queue) RetryFailed(ctx context.Context, id string) (bool, error) {
	raws, err := q.rdb.LRange(ctx, failedKey, 0, -1).Result()
	if err != nil {
		return false, fmt.Errorf("scanning failed items: %w", err)
	}
	for _, raw := range raws {
		var failed payload.FailedItem
		if err := json.Unmarshal([]byte(raw), &failed); err != nil {
			continue
		}
		if failed.Item.ID != id {
			continue
		}
		if err := q.rdb.LRem(ctx, failedKey, 1, raw).Err(); err != nil {
			return false, fmt.Errorf("removing failed item: %w", err)
		}
		requeued, err := json.Marshal(failed.Item)
		if err != nil {
			return false, fmt.Errorf("marshaling retried item: %w", err)
		}
		if err := q.rdb.RPush(ctx, pendingKey, requeued).Err(); err != nil {
			return false, fmt.Errorf("requeueing item: %w", err)
		}
		logging.JobInfo(id, "Retrying failed job")
		return true, nil
	}
	return false, nil
}

// ClearFailed drops all failed items and returns how many were removed
func (q *Queue) ClearFailed(ctx context.Context) (int64, error) {
	count, err := q.rdb.LLen(ctx, failedKey).Result()
	if err != nil {
		return 0, fmt.Errorf("counting failed items: %w", err)
	}
	if err := q.rdb.Del(ctx, failedKey).Err(); err != nil {
		return 0, fmt.Errorf("clearing failed items: %w", err)
	}
	return count, nil
}
