package instance

import "os"

// GetID returns the identifier for this process instance. It prefers the
// WORKER_ID environment variable, falls back to the hostname, and finally
// to a static default so log fields are never empty.
func GetID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
