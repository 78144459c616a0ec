package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/marcelsud/webhook-relay/failure"
)

/*
PostgreSQL implementation of failure.Repository

- seq (BIGSERIAL) gives the insertion order the read side promises
- payload, headers and error_details are JSONB so operators can query them
- Rows are only ever inserted
*/

const (
	insertRecordQuery = `
		INSERT INTO failed_deliveries (id, source, payload, headers, target_url, error_message, error_details, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	selectRecordsQuery = `
		SELECT id, source, payload, headers, target_url, error_message, error_details, status, created_at
		FROM failed_deliveries ORDER BY seq
	`
	selectRecordsBySourceQuery = `
		SELECT id, source, payload, headers, target_url, error_message, error_details, status, created_at
		FROM failed_deliveries WHERE source = $1 ORDER BY seq
	`
	countBySourceQuery = "SELECT source, COUNT(*) FROM failed_deliveries GROUP BY source"

	insertUndefinedQuery = `
		INSERT INTO undefined_routes (id, method, url, headers, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	selectUndefinedQuery = `
		SELECT id, method, url, headers, body, created_at FROM (
			SELECT seq, id, method, url, headers, body, created_at
			FROM undefined_routes ORDER BY seq DESC LIMIT $1
		) recent ORDER BY seq
	`
	countUndefinedQuery = "SELECT COUNT(*) FROM undefined_routes"
)

type Repository struct {
	DB *sql.DB
}

// NewRepository creates a repository with the default pool (25, 5, 5 min)
func NewRepository(connectionString string) (*Repository, error) {
	return NewRepositoryWithPoolConfig(connectionString, 25, 5, 5)
}

// NewRepositoryWithPoolConfig creates a repository with an explicit pool configuration
func NewRepositoryWithPoolConfig(connectionString string, maxOpenConns, maxIdleConns, maxLifeMinutes int) (*Repository, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
	if maxLifeMinutes > 0 {
		db.SetConnMaxLifetime(time.Duration(maxLifeMinutes) * time.Minute)
	}

	return &Repository{
		DB: db,
	}, nil
}

// Append inserts a failed delivery
func (r *Repository) Append(ctx context.Context, rec failure.Record) error {
	headers, err := json.Marshal(rec.Headers)
	if err != nil {
		return fmt.Errorf("marshaling headers: %w", err)
	}
	var details interface{}
	if rec.ErrorDetails != nil {
		b, err := json.Marshal(rec.ErrorDetails)
		if err != nil {
			return fmt.Errorf("marshaling error details: %w", err)
		}
		details = b
	}

	_, err = r.DB.ExecContext(ctx, insertRecordQuery,
		rec.ID,
		rec.Source,
		[]byte(rec.Payload),
		headers,
		rec.TargetURL,
		rec.ErrorMessage,
		details,
		rec.Status.String(),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting failed delivery: %w", err)
	}
	return nil
}

// AppendUndefined inserts an undefined-route hit
func (r *Repository) AppendUndefined(ctx context.Context, route failure.UndefinedRoute) error {
	headers, err := json.Marshal(route.Headers)
	if err != nil {
		return fmt.Errorf("marshaling headers: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, insertUndefinedQuery,
		route.ID,
		route.Method,
		route.URL,
		headers,
		[]byte(route.Body),
		route.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting undefined route: %w", err)
	}
	return nil
}

// Query returns failed deliveries in insertion order
func (r *Repository) Query(ctx context.Context, filter failure.Filter) ([]failure.Record, error) {
	var rows *sql.Rows
	var err error
	if filter.Source != "" {
		rows, err = r.DB.QueryContext(ctx, selectRecordsBySourceQuery, filter.Source)
	} else {
		rows, err = r.DB.QueryContext(ctx, selectRecordsQuery)
	}
	if err != nil {
		return nil, fmt.Errorf("selecting failed deliveries: %w", err)
	}
	defer rows.Close()

	records := []failure.Record{}
	for rows.Next() {
		var (
			rec                       failure.Record
			payload, headers, details []byte
			status                    string
		)
		err := rows.Scan(&rec.ID, &rec.Source, &payload, &headers, &rec.TargetURL, &rec.ErrorMessage, &details, &status, &rec.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning failed delivery: %w", err)
		}
		rec.Payload = json.RawMessage(payload)
		rec.Status = failure.NewStatus(status)
		if err := json.Unmarshal(headers, &rec.Headers); err != nil {
			return nil, fmt.Errorf("unmarshaling headers: %w", err)
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &rec.ErrorDetails); err != nil {
				return nil, fmt.Errorf("unmarshaling error details: %w", err)
			}
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating failed deliveries: %w", err)
	}
	return records, nil
}

// QueryUndefined returns the last limit hits, oldest first. limit <= 0 returns all.
func (r *Repository) QueryUndefined(ctx context.Context, limit int) ([]failure.UndefinedRoute, error) {
	var lim interface{}
	if limit > 0 {
		lim = limit
	}
	rows, err := r.DB.QueryContext(ctx, selectUndefinedQuery, lim)
	if err != nil {
		return nil, fmt.Errorf("selecting undefined routes: %w", err)
	}
	defer rows.Close()

	routes := []failure.UndefinedRoute{}
	for rows.Next() {
		var (
			route         failure.UndefinedRoute
			headers, body []byte
		)
		if err := rows.Scan(&route.ID, &route.Method, &route.URL, &headers, &body, &route.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning undefined route: %w", err)
		}
		route.Body = json.RawMessage(body)
		if err := json.Unmarshal(headers, &route.Headers); err != nil {
			return nil, fmt.Errorf("unmarshaling headers: %w", err)
		}
		routes = append(routes, route)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating undefined routes: %w", err)
	}
	return routes, nil
}

// CountBySource returns the number of failed deliveries per source
func (r *Repository) CountBySource(ctx context.Context) (map[string]int64, error) {
	rows, err := r.DB.QueryContext(ctx, countBySourceQuery)
	if err != nil {
		return nil, fmt.Errorf("counting failed deliveries: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var source string
		var n int64
		if err := rows.Scan(&source, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[source] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating counts: %w", err)
	}
	return counts, nil
}

// CountUndefined returns the number of undefined-route hits
func (r *Repository) CountUndefined(ctx context.Context) (int64, error) {
	var n int64
	if err := r.DB.QueryRowContext(ctx, countUndefinedQuery).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting undefined routes: %w", err)
	}
	return n, nil
}

// Close closes the database connection
func (r *Repository) Close(ctx context.Context) error {
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}

// CreateTables creates both tables (useful for tests and local runs)
func (r *Repository) CreateTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS failed_deliveries (
			seq BIGSERIAL PRIMARY KEY,
			id UUID NOT NULL UNIQUE,
			source TEXT NOT NULL,
			payload JSONB NOT NULL,
			headers JSONB NOT NULL,
			target_url TEXT NOT NULL,
			error_message TEXT NOT NULL,
			error_details JSONB,
			status TEXT NOT NULL DEFAULT 'failed',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS failed_deliveries_source_seq_idx ON failed_deliveries (source, seq)`,
		`CREATE TABLE IF NOT EXISTS undefined_routes (
			seq BIGSERIAL PRIMARY KEY,
			id UUID NOT NULL UNIQUE,
			method TEXT NOT NULL,
			url TEXT NOT NULL,
			headers JSONB NOT NULL,
			body JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, q := range queries {
		if _, err := r.DB.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("creating tables: %w", err)
		}
	}
	return nil
}

// DropTables removes both tables (useful for tests)
func (r *Repository) DropTables(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, "DROP TABLE IF EXISTS failed_deliveries, undefined_routes CASCADE")
	if err != nil {
		return fmt.Errorf("dropping tables: %w", err)
	}
	return nil
}
