package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	pkgerrors "github.com/angelmondragon/pricingfeeds-backend/pkg/errors"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/logger"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/queue"
	"github.com/google/uuid"
)

// statusWriter is the slice of the status store the upload path needs.
type statusWriter interface {
	MarkPending(ctx context.Context, taskID string) error
}

// UploadService accepts pricing feed files and hands them to the worker.
type UploadService struct {
	dir    string
	status statusWriter
	broker queue.Broker
	logg   *logger.Logger
	now    func() time.Time
}

// NewUploadService builds an upload service that spools files under dir.
func NewUploadService(dir string, status statusWriter, broker queue.Broker, logg *logger.Logger) (*UploadService, error) {
	if dir == "" {
		return nil, fmt.Errorf("upload directory required")
	}
	if status == nil {
		return nil, fmt.Errorf("status store required")
	}
	if broker == nil {
		return nil, fmt.Errorf("queue broker required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &UploadService{
		dir:    dir,
		status: status,
		broker: broker,
		logg:   logg,
		now:    time.Now,
	}, nil
}

// Accept spools the file to disk, registers the task as PENDING and
// enqueues the ingestion job. It returns the new task id.
func (s *UploadService) Accept(ctx context.Context, fileName string, file io.Reader) (string, error) {
	taskID := uuid.NewString()
	dest := filepath.Join(s.dir, fmt.Sprintf("%s_%s", taskID, filepath.Base(fileName)))

	out, err := os.Create(dest)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create upload file")
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(dest)
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save upload file")
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "flush upload file")
	}

	if err := s.status.MarkPending(ctx, taskID); err != nil {
		os.Remove(dest)
		return "", err
	}

	job := queue.Job{
		TaskID:     taskID,
		FilePath:   dest,
		FileName:   filepath.Base(fileName),
		EnqueuedAt: s.now().UTC(),
	}
	if err := s.broker.Enqueue(ctx, job); err != nil {
		os.Remove(dest)
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "enqueue ingestion job")
	}

	logCtx := s.logg.WithTaskID(ctx, taskID)
	s.logg.Info(logCtx, "upload accepted")
	return taskID, nil
}
