package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeList struct {
	items []string
}

func (f *fakeList) LPush(ctx context.Context, key string, values ...any) error {
	for _, v := range values {
		var s string
		switch value := v.(type) {
		case []byte:
			s = string(value)
		case string:
			s = value
		}
		f.items = append([]string{s}, f.items...)
	}
	return nil
}

func (f *fakeList) BRPop(ctx context.Context, timeout time.Duration, key string) (string, error) {
	if len(f.items) == 0 {
		return "", redis.Nil
	}
	value := f.items[len(f.items)-1]
	f.items = f.items[:len(f.items)-1]
	return value, nil
}

func (f *fakeList) LLen(ctx context.Context, key string) (int64, error) {
	return int64(len(f.items)), nil
}

func (f *fakeList) QueueKey(name string) string {
	return "pricing:queue:" + name
}

func TestRedisBrokerEnqueueAndDepth(t *testing.T) {
	list := &fakeList{}
	broker, err := NewRedisBroker(list, "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if broker.key != "pricing:queue:ingest" {
		t.Fatalf("unexpected queue key %q", broker.key)
	}

	ctx := context.Background()
	job := Job{TaskID: "t-1", FilePath: "/tmp/t-1_prices.csv", EnqueuedAt: time.Now().UTC()}
	if err := broker.Enqueue(ctx, job); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	depth, err := broker.Depth(ctx)
	if err != nil {
		t.Fatalf("depth failed: %v", err)
	}
	if depth != 1 {
		t.Fatalf("expected depth 1, got %d", depth)
	}

	var stored Job
	if err := json.Unmarshal([]byte(list.items[0]), &stored); err != nil {
		t.Fatalf("stored payload is not JSON: %v", err)
	}
	if stored.TaskID != "t-1" || stored.FilePath != "/tmp/t-1_prices.csv" {
		t.Fatalf("unexpected stored job %+v", stored)
	}
}

func TestRedisBrokerConsumeFIFO(t *testing.T) {
	list := &fakeList{}
	broker, err := NewRedisBroker(list, "ingest", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, id := range []string{"a", "b", "c"} {
		if err := broker.Enqueue(ctx, Job{TaskID: id}); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}

	var seen []string
	err = broker.Consume(ctx, func(ctx context.Context, job Job) Outcome {
		seen = append(seen, job.TaskID)
		if len(seen) == 3 {
			cancel()
		}
		return Done
	})
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if len(seen) != 3 || seen[0] != "a" || seen[1] != "b" || seen[2] != "c" {
		t.Fatalf("expected FIFO delivery, got %v", seen)
	}
}

func TestRedisBrokerRetryReenqueues(t *testing.T) {
	list := &fakeList{}
	broker, err := NewRedisBroker(list, "ingest", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := broker.Enqueue(ctx, Job{TaskID: "flaky"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	deliveries := 0
	err = broker.Consume(ctx, func(ctx context.Context, job Job) Outcome {
		deliveries++
		if deliveries == 1 {
			return Retry
		}
		cancel()
		return Done
	})
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if deliveries != 2 {
		t.Fatalf("expected redelivery after Retry, got %d deliveries", deliveries)
	}
}

func TestRedisBrokerDropsUndecodablePayloads(t *testing.T) {
	list := &fakeList{}
	broker, err := NewRedisBroker(list, "ingest", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := list.LPush(ctx, broker.key, "{not json"); err != nil {
		t.Fatalf("lpush failed: %v", err)
	}
	if err := broker.Enqueue(ctx, Job{TaskID: "good"}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	var seen []string
	err = broker.Consume(ctx, func(ctx context.Context, job Job) Outcome {
		seen = append(seen, job.TaskID)
		cancel()
		return Done
	})
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if len(seen) != 1 || seen[0] != "good" {
		t.Fatalf("expected only the decodable job, got %v", seen)
	}
}
