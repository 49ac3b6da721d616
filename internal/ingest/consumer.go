package ingest

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pricingfeeds-backend/pkg/logger"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/queue"
)

// jobProcessor runs one job to a terminal status.
type jobProcessor interface {
	Process(ctx context.Context, job queue.Job) error
}

// Consumer drains ingestion jobs from the broker into the processor.
type Consumer struct {
	broker    queue.Broker
	processor jobProcessor
	logg      *logger.Logger
}

// NewConsumer wires the broker to the processor.
func NewConsumer(broker queue.Broker, processor jobProcessor, logg *logger.Logger) (*Consumer, error) {
	if broker == nil {
		return nil, fmt.Errorf("queue broker required")
	}
	if processor == nil {
		return nil, fmt.Errorf("job processor required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{broker: broker, processor: processor, logg: logg}, nil
}

// Run consumes jobs until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.broker.Consume(ctx, c.handle)
}

func (c *Consumer) handle(ctx context.Context, job queue.Job) queue.Outcome {
	if err := c.processor.Process(ctx, job); err != nil {
		logCtx := c.logg.WithTaskID(ctx, job.TaskID)
		c.logg.Error(logCtx, "ingestion job will be redelivered", err)
		return queue.Retry
	}
	return queue.Done
}
