package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/angelmondragon/pricingfeeds-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricingfeeds-backend/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type fakeKV struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	default:
		panic("unsupported value type")
	}
	f.ttls[key] = ttl
	return nil
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	value, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeKV) TaskKey(taskID string) string {
	return "pricing:task:" + taskID
}

func TestStatusStoreLifecycle(t *testing.T) {
	kv := newFakeKV()
	store, err := NewStatusStore(kv, time.Hour)
	if err != nil {
		t.Fatalf("new status store: %v", err)
	}
	ctx := context.Background()

	if err := store.MarkPending(ctx, "t1"); err != nil {
		t.Fatalf("mark pending: %v", err)
	}
	record, err := store.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Status != enums.TaskStatusPending {
		t.Fatalf("expected PENDING, got %s", record.Status)
	}
	if record.UpdatedAt.IsZero() {
		t.Fatal("expected updated_at to be set")
	}

	if err := store.MarkStarted(ctx, "t1"); err != nil {
		t.Fatalf("mark started: %v", err)
	}
	record, _ = store.Get(ctx, "t1")
	if record.Status != enums.TaskStatusStarted {
		t.Fatalf("expected STARTED, got %s", record.Status)
	}

	if err := store.MarkSuccess(ctx, "t1", 42); err != nil {
		t.Fatalf("mark success: %v", err)
	}
	record, _ = store.Get(ctx, "t1")
	if record.Status != enums.TaskStatusSuccess {
		t.Fatalf("expected SUCCESS, got %s", record.Status)
	}
	if record.RowsIngested == nil || *record.RowsIngested != 42 {
		t.Fatalf("expected 42 rows ingested, got %v", record.RowsIngested)
	}
}

func TestStatusStoreFailureKeepsReason(t *testing.T) {
	kv := newFakeKV()
	store, _ := NewStatusStore(kv, time.Hour)
	ctx := context.Background()

	if err := store.MarkFailure(ctx, "t2", "row 3: invalid price"); err != nil {
		t.Fatalf("mark failure: %v", err)
	}
	record, err := store.Get(ctx, "t2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record.Status != enums.TaskStatusFailure {
		t.Fatalf("expected FAILURE, got %s", record.Status)
	}
	if record.Reason != "row 3: invalid price" {
		t.Fatalf("unexpected reason %q", record.Reason)
	}
}

func TestStatusStoreZeroRowSuccess(t *testing.T) {
	kv := newFakeKV()
	store, _ := NewStatusStore(kv, time.Hour)

	if err := store.MarkSuccess(context.Background(), "t3", 0); err != nil {
		t.Fatalf("mark success: %v", err)
	}
	record, _ := store.Get(context.Background(), "t3")
	if record.RowsIngested == nil || *record.RowsIngested != 0 {
		t.Fatalf("expected explicit zero row count, got %v", record.RowsIngested)
	}
}

func TestStatusStoreUnknownTaskReportsPending(t *testing.T) {
	store, _ := NewStatusStore(newFakeKV(), time.Hour)

	record, err := store.Get(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("get unknown: %v", err)
	}
	if record.Status != enums.TaskStatusPending {
		t.Fatalf("expected PENDING for unknown task, got %s", record.Status)
	}
	if record.TaskID != "never-seen" {
		t.Fatalf("expected echoed task id, got %q", record.TaskID)
	}
}

func TestStatusStoreAppliesTTL(t *testing.T) {
	kv := newFakeKV()
	store, _ := NewStatusStore(kv, 30*time.Minute)

	if err := store.MarkPending(context.Background(), "t4"); err != nil {
		t.Fatalf("mark pending: %v", err)
	}
	if got := kv.ttls[kv.TaskKey("t4")]; got != 30*time.Minute {
		t.Fatalf("expected 30m ttl, got %v", got)
	}
}

func TestStatusStoreCorruptRecord(t *testing.T) {
	kv := newFakeKV()
	store, _ := NewStatusStore(kv, time.Hour)
	kv.data[kv.TaskKey("t5")] = "{not json"

	_, err := store.Get(context.Background(), "t5")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInternal {
		t.Fatalf("expected internal error for corrupt record, got %v", err)
	}
}
