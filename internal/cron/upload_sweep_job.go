package cron

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/angelmondragon/pricingfeeds-backend/pkg/logger"
	"go.uber.org/multierr"
)

const defaultUploadRetention = 24 * time.Hour

// UploadSweepJobParams configure the spool directory sweep.
type UploadSweepJobParams struct {
	Logger    *logger.Logger
	Dir       string
	Retention time.Duration
}

// NewUploadSweepJob builds a job that removes uploaded files once they are
// older than the retention window. Processed and failed uploads both stay
// on disk until the sweep collects them.
func NewUploadSweepJob(params UploadSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Dir == "" {
		return nil, fmt.Errorf("upload directory required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultUploadRetention
	}
	return &uploadSweepJob{
		logg:      params.Logger,
		dir:       params.Dir,
		retention: retention,
		now:       time.Now,
	}, nil
}

type uploadSweepJob struct {
	logg      *logger.Logger
	dir       string
	retention time.Duration
	now       func() time.Time
}

func (j *uploadSweepJob) Name() string { return "upload-sweep" }

func (j *uploadSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.retention)

	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read upload dir: %w", err)
	}

	var scanned, removed int
	var sweepErrs error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		scanned++

		info, err := entry.Info()
		if err != nil {
			sweepErrs = multierr.Append(sweepErrs, fmt.Errorf("stat %s: %w", entry.Name(), err))
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.dir, entry.Name())); err != nil {
			sweepErrs = multierr.Append(sweepErrs, fmt.Errorf("remove %s: %w", entry.Name(), err))
			continue
		}
		removed++
	}
	if sweepErrs != nil {
		return fmt.Errorf("upload sweep: %w", sweepErrs)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"retention":     j.retention.String(),
		"files_scanned": scanned,
		"files_removed": removed,
	})
	j.logg.Info(logCtx, "upload sweep complete")
	return nil
}
