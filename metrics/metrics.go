package metrics

import (
	"context"
	"time"
)

// Metrics is a snapshot of what the relay has recorded.
type Metrics struct {
	// FailuresBySource maps source to the number of failure records
	FailuresBySource map[string]int64 `json:"failures_by_source"`

	// UndefinedRoutes is the number of requests that matched no route
	UndefinedRoutes int64 `json:"undefined_routes"`

	// Timestamp when metrics were collected
	Timestamp time.Time `json:"timestamp"`
}

// Total returns the number of failure records over all sources
func (m Metrics) Total() int64 {
	var total int64
	for _, n := range m.FailuresBySource {
		total += n
	}
	return total
}

// Collector defines the interface for collecting metrics from the failure store.
type Collector interface {
	// Collect gathers current metrics
	Collect(ctx context.Context) (Metrics, error)

	// GetFailuresBySource returns the number of failure records per source
	GetFailuresBySource(ctx context.Context) (map[string]int64, error)

	// GetUndefinedRoutes returns the number of undefined-route records
	GetUndefinedRoutes(ctx context.Context) (int64, error)
}
