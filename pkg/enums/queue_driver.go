package enums

import "fmt"

// QueueDriver selects the transport backing the ingestion job queue.
type QueueDriver string

const (
	QueueDriverRedis  QueueDriver = "redis"
	QueueDriverPubSub QueueDriver = "pubsub"
)

var validQueueDrivers = []QueueDriver{
	QueueDriverRedis,
	QueueDriverPubSub,
}

// String implements fmt.Stringer.
func (q QueueDriver) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QueueDriver.
func (q QueueDriver) IsValid() bool {
	for _, candidate := range validQueueDrivers {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQueueDriver converts the raw string to QueueDriver.
func ParseQueueDriver(value string) (QueueDriver, error) {
	for _, candidate := range validQueueDrivers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid queue driver %q", value)
}
