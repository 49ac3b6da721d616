package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/angelmondragon/pricingfeeds-backend/pkg/logger"
	pubsubpkg "github.com/angelmondragon/pricingfeeds-backend/pkg/pubsub"
)

const defaultPublishTimeout = 15 * time.Second

// PubSubBroker runs the queue over a GCP Pub/Sub topic + subscription pair.
// A Retry outcome nacks the message so the subscription redelivers it.
type PubSubBroker struct {
	publisher  *gcppubsub.Publisher
	subscriber *gcppubsub.Subscriber
	logg       *logger.Logger
}

// NewPubSubBroker wires a broker on top of the shared Pub/Sub client.
func NewPubSubBroker(client *pubsubpkg.Client, logg *logger.Logger) (*PubSubBroker, error) {
	if client == nil {
		return nil, errors.New("pubsub client is required")
	}
	publisher := client.IngestPublisher()
	if publisher == nil {
		return nil, errors.New("ingest topic is not configured")
	}
	subscriber := client.IngestSubscription()
	if subscriber == nil {
		return nil, errors.New("ingest subscription is not configured")
	}
	return &PubSubBroker{
		publisher:  publisher,
		subscriber: subscriber,
		logg:       logg,
	}, nil
}

// Enqueue publishes the job and waits for the server-assigned message ID.
func (b *PubSubBroker) Enqueue(ctx context.Context, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	result := b.publisher.Publish(publishCtx, &gcppubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"task_id":     job.TaskID,
			"enqueued_at": job.EnqueuedAt.Format(time.RFC3339Nano),
		},
	})
	_, err = result.Get(publishCtx)
	return err
}

// Consume receives messages until the context is canceled.
func (b *PubSubBroker) Consume(ctx context.Context, handler Handler) error {
	return b.subscriber.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		var job Job
		if err := json.Unmarshal(msg.Data, &job); err != nil {
			if b.logg != nil {
				b.logg.Error(ctx, "dropping undecodable job payload", err)
			}
			msg.Ack()
			return
		}

		if handler(ctx, job) == Retry {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}
