package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/angelmondragon/pricingfeeds-backend/pkg/logger"
	redispkg "github.com/angelmondragon/pricingfeeds-backend/pkg/redis"
)

const (
	// DefaultQueueName is the list holding pending ingestion jobs.
	DefaultQueueName = "ingest"

	defaultPollTimeout = 5 * time.Second
	popRetryDelay      = time.Second
)

type redisList interface {
	LPush(ctx context.Context, key string, values ...any) error
	BRPop(ctx context.Context, timeout time.Duration, key string) (string, error)
	LLen(ctx context.Context, key string) (int64, error)
	QueueKey(name string) string
}

// RedisBroker runs the queue on a Redis list: producers LPUSH, the worker
// BRPOPs, so delivery order is FIFO. A Retry outcome re-enqueues the job at
// the back of the list.
type RedisBroker struct {
	store       redisList
	key         string
	pollTimeout time.Duration
	logg        *logger.Logger
}

// NewRedisBroker wires a broker on top of the shared Redis client.
func NewRedisBroker(store redisList, queueName string, logg *logger.Logger) (*RedisBroker, error) {
	if store == nil {
		return nil, errors.New("redis store is required")
	}
	if queueName == "" {
		queueName = DefaultQueueName
	}
	return &RedisBroker{
		store:       store,
		key:         store.QueueKey(queueName),
		pollTimeout: defaultPollTimeout,
		logg:        logg,
	}, nil
}

// Enqueue appends the job to the list.
func (b *RedisBroker) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return b.store.LPush(ctx, b.key, payload)
}

// Depth returns the number of jobs currently waiting.
func (b *RedisBroker) Depth(ctx context.Context) (int64, error) {
	return b.store.LLen(ctx, b.key)
}

// Consume pops jobs until the context is canceled. Payloads that fail to
// decode are dropped after logging; redelivery would never succeed.
func (b *RedisBroker) Consume(ctx context.Context, handler Handler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := b.store.BRPop(ctx, b.pollTimeout, b.key)
		if err != nil {
			if redispkg.IsNil(err) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if b.logg != nil {
				b.logg.Error(ctx, "queue pop failed", err)
			}
			if sleepErr := sleepCtx(ctx, popRetryDelay); sleepErr != nil {
				return sleepErr
			}
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			if b.logg != nil {
				b.logg.Error(ctx, "dropping undecodable job payload", err)
			}
			continue
		}

		if handler(ctx, job) == Retry {
			if err := b.Enqueue(ctx, job); err != nil && b.logg != nil {
				b.logg.Error(ctx, "failed to re-enqueue job", err)
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
