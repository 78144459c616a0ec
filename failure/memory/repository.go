package memory

import (
	"context"
	"sync"

	"github.com/marcelsud/webhook-relay/failure"
)

/* In-memory implementation of failure.Repository
 * Used for local runs (STORAGE_DRIVER=memory) and handler tests
 * Nothing survives a restart
 */

type Repository struct {
	mu        sync.RWMutex
	records   []failure.Record
	undefined []failure.UndefinedRoute
}

// NewRepository creates an empty in-memory repository
func NewRepository() *Repository {
	return &Repository{}
}

func (r *Repository) Append(ctx context.Context, record failure.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

func (r *Repository) AppendUndefined(ctx context.Context, route failure.UndefinedRoute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.undefined = append(r.undefined, route)
	return nil
}

func (r *Repository) Query(ctx context.Context, filter failure.Filter) ([]failure.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]failure.Record, 0, len(r.records))
	for _, rec := range r.records {
		if filter.Matches(rec) {
			result = append(result, rec)
		}
	}
	return result, nil
}

// QueryUndefined returns the last limit entries, oldest first. limit <= 0 returns all.
func (r *Repository) QueryUndefined(ctx context.Context, limit int) ([]failure.UndefinedRoute, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	start := 0
	if limit > 0 && len(r.undefined) > limit {
		start = len(r.undefined) - limit
	}
	result := make([]failure.UndefinedRoute, len(r.undefined)-start)
	copy(result, r.undefined[start:])
	return result, nil
}

func (r *Repository) CountBySource(ctx context.Context) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int64)
	for _, rec := range r.records {
		counts[rec.Source]++
	}
	return counts, nil
}

func (r *Repository) CountUndefined(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.undefined)), nil
}

func (r *Repository) Close(ctx context.Context) error {
	return nil
}
