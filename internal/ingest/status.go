package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/pricingfeeds-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pricingfeeds-backend/pkg/errors"
	redispkg "github.com/angelmondragon/pricingfeeds-backend/pkg/redis"
)

// TaskRecord is the status payload kept per ingestion task.
type TaskRecord struct {
	TaskID       string           `json:"task_id"`
	Status       enums.TaskStatus `json:"status"`
	Reason       string           `json:"reason,omitempty"`
	RowsIngested *int             `json:"rows_ingested,omitempty"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// taskKV is the slice of the redis client the status store needs.
type taskKV interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	TaskKey(taskID string) string
}

// StatusStore persists task lifecycle records with a bounded TTL.
type StatusStore struct {
	kv  taskKV
	ttl time.Duration
	now func() time.Time
}

// NewStatusStore builds a status store on top of the provided key-value
// client. Records expire after ttl.
func NewStatusStore(kv taskKV, ttl time.Duration) (*StatusStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("task kv client required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("task record ttl must be positive")
	}
	return &StatusStore{kv: kv, ttl: ttl, now: time.Now}, nil
}

// MarkPending records a freshly accepted task.
func (s *StatusStore) MarkPending(ctx context.Context, taskID string) error {
	return s.write(ctx, TaskRecord{TaskID: taskID, Status: enums.TaskStatusPending})
}

// MarkStarted records that a worker picked the task up.
func (s *StatusStore) MarkStarted(ctx context.Context, taskID string) error {
	return s.write(ctx, TaskRecord{TaskID: taskID, Status: enums.TaskStatusStarted})
}

// MarkSuccess records a committed ingestion and the number of rows written.
func (s *StatusStore) MarkSuccess(ctx context.Context, taskID string, rows int) error {
	return s.write(ctx, TaskRecord{
		TaskID:       taskID,
		Status:       enums.TaskStatusSuccess,
		RowsIngested: &rows,
	})
}

// MarkFailure records a terminal failure with its reason.
func (s *StatusStore) MarkFailure(ctx context.Context, taskID, reason string) error {
	return s.write(ctx, TaskRecord{
		TaskID: taskID,
		Status: enums.TaskStatusFailure,
		Reason: reason,
	})
}

// Get loads the task record. Unknown or expired task ids report PENDING,
// matching the contract that a status probe never errors on a valid id shape.
func (s *StatusStore) Get(ctx context.Context, taskID string) (*TaskRecord, error) {
	raw, err := s.kv.Get(ctx, s.kv.TaskKey(taskID))
	if err != nil {
		if redispkg.IsNil(err) {
			return &TaskRecord{TaskID: taskID, Status: enums.TaskStatusPending}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: load task status")
	}

	var record TaskRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode task status")
	}
	return &record, nil
}

func (s *StatusStore) write(ctx context.Context, record TaskRecord) error {
	record.UpdatedAt = s.now().UTC()
	payload, err := json.Marshal(record)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode task status")
	}
	if err := s.kv.Set(ctx, s.kv.TaskKey(record.TaskID), payload, s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis: store task status")
	}
	return nil
}
