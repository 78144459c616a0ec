package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelsud/webhook-relay/failure"
)

// StoreCollector implements the Collector interface over any failure store
type StoreCollector struct {
	counter failure.Counter
	now     func() time.Time
}

// NewStoreCollector creates a new metrics collector
func NewStoreCollector(counter failure.Counter) *StoreCollector {
	return &StoreCollector{
		counter: counter,
		now:     time.Now,
	}
}

// Collect gathers all metrics from the store
func (c *StoreCollector) Collect(ctx context.Context) (Metrics, error) {
	bySource, err := c.GetFailuresBySource(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting failures by source: %w", err)
	}

	undefined, err := c.GetUndefinedRoutes(ctx)
	if err != nil {
		return Metrics{}, fmt.Errorf("getting undefined routes: %w", err)
	}

	return Metrics{
		FailuresBySource: bySource,
		UndefinedRoutes:  undefined,
		Timestamp:        c.now(),
	}, nil
}

func (c *StoreCollector) GetFailuresBySource(ctx context.Context) (map[string]int64, error) {
	counts, err := c.counter.CountBySource(ctx)
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = map[string]int64{}
	}
	return counts, nil
}

func (c *StoreCollector) GetUndefinedRoutes(ctx context.Context) (int64, error) {
	return c.counter.CountUndefined(ctx)
}
