package failure

import "context"

/* Small interfaces, composed into Repository
 * Backends only ever append: there is no update or delete
 */

// Writer appends records
type Writer interface {
	Append(ctx context.Context, record Record) error
	AppendUndefined(ctx context.Context, route UndefinedRoute) error
}

// Reader returns records in insertion order
type Reader interface {
	Query(ctx context.Context, filter Filter) ([]Record, error)
	QueryUndefined(ctx context.Context, limit int) ([]UndefinedRoute, error)
}

// Counter reports totals for metrics
type Counter interface {
	CountBySource(ctx context.Context) (map[string]int64, error)
	CountUndefined(ctx context.Context) (int64, error)
}

type Repository interface {
	Reader
	Writer
	Counter
	Close(ctx context.Context) error
}
