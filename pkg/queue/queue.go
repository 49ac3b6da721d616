// Package queue moves ingestion jobs between the API and the worker over a
// pluggable transport.
package queue

import (
	"context"
	"time"
)

// Job is one unit of ingestion work.
type Job struct {
	TaskID     string    `json:"task_id"`
	FilePath   string    `json:"file_path"`
	FileName   string    `json:"file_name,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Outcome tells the broker what to do with a consumed message.
type Outcome int

const (
	// Done removes the message from the queue.
	Done Outcome = iota
	// Retry returns the message to the queue for redelivery.
	Retry
)

// Handler processes one job. It must not panic; brokers treat a Retry
// outcome as redeliverable and anything else as handled.
type Handler func(ctx context.Context, job Job) Outcome

// Broker is the transport contract shared by all drivers.
type Broker interface {
	// Enqueue hands a job to the queue.
	Enqueue(ctx context.Context, job Job) error
	// Consume delivers jobs to handler until the context is canceled.
	Consume(ctx context.Context, handler Handler) error
}
