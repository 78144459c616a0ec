package failure

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Recorder is what the delivery path needs from the failure store
type Recorder interface {
	Record(ctx context.Context, record Record) (string, error)
	RecordUndefined(ctx context.Context, route UndefinedRoute) (string, error)
}

// UseCase is the operator-facing side: recording plus reads
type UseCase interface {
	Recorder
	Query(ctx context.Context, filter Filter) ([]Record, error)
	QueryUndefined(ctx context.Context, limit int) ([]UndefinedRoute, error)
}

type Service struct {
	Repo Repository
	now  func() time.Time
}

// NewService creates a failure service on top of a backend
func NewService(repo Repository) *Service {
	return &Service{
		Repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Record validates, stamps and appends a failed delivery. CreatedAt and ID
// are always assigned here, whatever the caller set.
func (s *Service) Record(ctx context.Context, record Record) (string, error) {
	record.Source = strings.TrimSpace(record.Source)
	if record.Source == "" {
		return "", fmt.Errorf("%w: source is required", ErrInvalidRecord)
	}
	if strings.TrimSpace(record.ErrorMessage) == "" {
		return "", fmt.Errorf("%w: error message is required", ErrInvalidRecord)
	}
	if record.TargetURL == "" {
		record.TargetURL = NotConfiguredTarget
	}
	if record.Status == "" {
		record.Status = StatusFailed
	}
	if len(record.Payload) == 0 {
		record.Payload = []byte("null")
	}
	if record.Headers == nil {
		record.Headers = map[string][]string{}
	}
	record.ID = uuid.NewString()
	record.CreatedAt = s.now()

	if err := s.Repo.Append(ctx, record); err != nil {
		return "", &StorageError{Op: "append", Err: err}
	}
	return record.ID, nil
}

// RecordUndefined appends a request that matched no route
func (s *Service) RecordUndefined(ctx context.Context, route UndefinedRoute) (string, error) {
	if route.Method == "" || route.URL == "" {
		return "", fmt.Errorf("%w: method and url are required", ErrInvalidRecord)
	}
	if len(route.Body) == 0 {
		route.Body = []byte("null")
	}
	if route.Headers == nil {
		route.Headers = map[string][]string{}
	}
	route.ID = uuid.NewString()
	route.CreatedAt = s.now()

	if err := s.Repo.AppendUndefined(ctx, route); err != nil {
		return "", &StorageError{Op: "append undefined route", Err: err}
	}
	return route.ID, nil
}

// Query returns failed deliveries in insertion order
func (s *Service) Query(ctx context.Context, filter Filter) ([]Record, error) {
	filter.Source = strings.TrimSpace(filter.Source)
	records, err := s.Repo.Query(ctx, filter)
	if err != nil {
		return nil, &StorageError{Op: "query", Err: err}
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// QueryUndefined returns the most recent undefined-route hits, oldest first
func (s *Service) QueryUndefined(ctx context.Context, limit int) ([]UndefinedRoute, error) {
	routes, err := s.Repo.QueryUndefined(ctx, limit)
	if err != nil {
		return nil, &StorageError{Op: "query undefined routes", Err: err}
	}
	if routes == nil {
		routes = []UndefinedRoute{}
	}
	return routes, nil
}
