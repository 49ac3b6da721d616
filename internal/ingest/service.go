package ingest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/angelmondragon/pricingfeeds-backend/internal/pricingfeeds"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/config"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/db"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pricingfeeds-backend/pkg/errors"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/logger"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/metrics"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/queue"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
)

const (
	jobName         = "ingest"
	maxReasonLen    = 2048
	commitRetryBase = 500 * time.Millisecond
)

// statusRecorder is the slice of the status store the processor needs.
type statusRecorder interface {
	MarkStarted(ctx context.Context, taskID string) error
	MarkSuccess(ctx context.Context, taskID string, rows int) error
	MarkFailure(ctx context.Context, taskID, reason string) error
}

// Processor turns one uploaded CSV into committed pricing feed rows.
type Processor struct {
	repo        *pricingfeeds.Repository
	dbClient    *db.Client
	status      statusRecorder
	jobMetrics  *metrics.JobMetrics
	logg        *logger.Logger
	batchSize   int
	maxAttempts int
}

// NewProcessor constructs an ingestion processor.
func NewProcessor(repo *pricingfeeds.Repository, dbClient *db.Client, status statusRecorder, jobMetrics *metrics.JobMetrics, cfg config.IngestConfig, logg *logger.Logger) (*Processor, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing feed repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if status == nil {
		return nil, fmt.Errorf("status store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	maxAttempts := cfg.MaxCommitAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	return &Processor{
		repo:        repo,
		dbClient:    dbClient,
		status:      status,
		jobMetrics:  jobMetrics,
		logg:        logg,
		batchSize:   batchSize,
		maxAttempts: maxAttempts,
	}, nil
}

// Process runs one ingestion job to a terminal status. A non-nil return
// means the job did not reach a terminal status and should be redelivered;
// parse and validation failures are terminal and return nil after the
// FAILURE record is written.
func (p *Processor) Process(ctx context.Context, job queue.Job) error {
	logCtx := p.logg.WithTaskID(ctx, job.TaskID)
	start := time.Now()

	if err := p.status.MarkStarted(logCtx, job.TaskID); err != nil {
		return err
	}
	p.logg.Info(logCtx, "ingestion started")

	rows, err := p.ingest(logCtx, job)
	p.jobMetrics.ObserveDuration(jobName, time.Since(start))
	if err != nil {
		if db.IsTransient(err) {
			// The task stays STARTED; a later delivery settles it.
			return err
		}
		p.jobMetrics.IncFailure(jobName)
		p.logg.Error(logCtx, "ingestion failed", err)
		return p.status.MarkFailure(logCtx, job.TaskID, failureReason(err))
	}

	p.jobMetrics.IncSuccess(jobName)
	p.jobMetrics.AddRows(rows)
	if err := p.status.MarkSuccess(logCtx, job.TaskID, rows); err != nil {
		return err
	}
	p.logg.Info(p.logg.WithField(logCtx, "rows_ingested", rows), "ingestion succeeded")
	return nil
}

func (p *Processor) ingest(ctx context.Context, job queue.Job) (int, error) {
	file, err := os.Open(job.FilePath)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeIngestion, err, "open uploaded file")
	}
	defer file.Close()

	feeds, err := ParseCSV(file)
	if err != nil {
		return 0, err
	}

	for i := range feeds {
		rowCtx := p.logg.WithFields(ctx, map[string]any{
			"row":      i + 1,
			"store_id": feeds[i].StoreID,
			"sku":      feeds[i].SKU,
		})
		p.logg.Debug(rowCtx, "parsed feed row")
	}

	if err := p.commit(ctx, feeds); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: commit pricing feed rows")
	}
	return len(feeds), nil
}

// commit writes every parsed row in a single transaction, retrying the
// whole transaction on transient store errors.
func (p *Processor) commit(ctx context.Context, feeds []models.PricingFeed) error {
	if len(feeds) == 0 {
		return nil
	}

	backoff := retry.WithMaxRetries(uint64(p.maxAttempts-1), retry.NewExponential(commitRetryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := p.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
			return p.repo.WithTx(tx).CreateInBatches(ctx, feeds, p.batchSize)
		})
		if err == nil {
			return nil
		}
		if db.IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func failureReason(err error) string {
	reason := err.Error()
	if len(reason) > maxReasonLen {
		reason = reason[:maxReasonLen]
	}
	return reason
}
