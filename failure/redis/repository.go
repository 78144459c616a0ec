package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/marcelsud/webhook-relay/failure"
	"github.com/redis/go-redis/v9"
)

/* Redis Streams implementation of failure.Repository
 * Streams are append-only and keep insertion order, which is exactly the contract of the failure log
 * Every record goes to the global stream and to its per-source stream in one MULTI
 */

const (
	allStream       = "failures:all"    // every failed delivery
	sourcePrefix    = "failures:source" // failures:source:{source}
	undefinedStream = "failures:undefined"
)

type Repository struct {
	client *redis.Client
}

// NewRepository creates a new Redis repository
func NewRepository(addr, password string, db int) (*Repository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return &Repository{
		client: client,
	}, nil
}

// Append adds a failed delivery to the global and per-source streams
func (r *Repository) Append(ctx context.Context, rec failure.Record) error {
	values, err := recordValues(rec)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAdd(ctx, &redis.XAddArgs{Stream: allStream, Values: values})
		pipe.XAdd(ctx, &redis.XAddArgs{Stream: sourceStream(rec.Source), Values: values})
		return nil
	})
	if err != nil {
		return fmt.Errorf("adding to stream: %w", err)
	}
	return nil
}

// AppendUndefined adds an undefined-route hit to its stream
func (r *Repository) AppendUndefined(ctx context.Context, route failure.UndefinedRoute) error {
	headersJSON, err := json.Marshal(route.Headers)
	if err != nil {
		return fmt.Errorf("marshaling headers: %w", err)
	}

	err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: undefinedStream,
		Values: map[string]interface{}{
			"id":         route.ID,
			"method":     route.Method,
			"url":        route.URL,
			"headers":    string(headersJSON),
			"body":       string(route.Body),
			"created_at": route.CreatedAt.Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("adding undefined route to stream: %w", err)
	}
	return nil
}

// Query reads the whole stream for the filter, oldest first
func (r *Repository) Query(ctx context.Context, filter failure.Filter) ([]failure.Record, error) {
	stream := allStream
	if filter.Source != "" {
		stream = sourceStream(filter.Source)
	}

	msgs, err := r.client.XRange(ctx, stream, "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("reading stream %s: %w", stream, err)
	}

	records := make([]failure.Record, 0, len(msgs))
	for _, msg := range msgs {
		rec, err := parseRecord(msg.Values)
		if err != nil {
			return nil, fmt.Errorf("parsing message %s: %w", msg.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// QueryUndefined returns the last limit hits, oldest first. limit <= 0 returns all.
func (r *Repository) QueryUndefined(ctx context.Context, limit int) ([]failure.UndefinedRoute, error) {
	var msgs []redis.XMessage
	var err error
	if limit > 0 {
		msgs, err = r.client.XRevRangeN(ctx, undefinedStream, "+", "-", int64(limit)).Result()
		// XREVRANGE is newest first
		for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
			msgs[i], msgs[j] = msgs[j], msgs[i]
		}
	} else {
		msgs, err = r.client.XRange(ctx, undefinedStream, "-", "+").Result()
	}
	if err != nil {
		return nil, fmt.Errorf("reading undefined routes: %w", err)
	}

	routes := make([]failure.UndefinedRoute, 0, len(msgs))
	for _, msg := range msgs {
		route, err := parseUndefined(msg.Values)
		if err != nil {
			return nil, fmt.Errorf("parsing message %s: %w", msg.ID, err)
		}
		routes = append(routes, route)
	}
	return routes, nil
}

// CountBySource returns the length of every per-source stream
func (r *Repository) CountBySource(ctx context.Context) (map[string]int64, error) {
	var keys []string
	var cursor uint64
	for {
		scanKeys, nextCursor, err := r.client.Scan(ctx, cursor, sourcePrefix+":*", 1000).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning source streams: %w", err)
		}
		keys = append(keys, scanKeys...)

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	counts := make(map[string]int64, len(keys))
	if len(keys) == 0 {
		return counts, nil
	}

	// Use pipeline for efficient batch operations
	pipe := r.client.Pipeline()
	cmds := make([]*redis.IntCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.XLen(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("executing pipeline: %w", err)
	}

	for i, cmd := range cmds {
		length, err := cmd.Result()
		if err != nil {
			continue
		}
		counts[strings.TrimPrefix(keys[i], sourcePrefix+":")] = length
	}
	return counts, nil
}

// CountUndefined returns the length of the undefined-route stream
func (r *Repository) CountUndefined(ctx context.Context) (int64, error) {
	n, err := r.client.XLen(ctx, undefinedStream).Result()
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("counting undefined routes: %w", err)
	}
	return n, nil
}

// Close closes the Redis connection
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Close()
}

// Helper functions

func sourceStream(source string) string {
	return fmt.Sprintf("%s:%s", sourcePrefix, source)
}

func recordValues(rec failure.Record) (map[string]interface{}, error) {
	headersJSON, err := json.Marshal(rec.Headers)
	if err != nil {
		return nil, fmt.Errorf("marshaling headers: %w", err)
	}
	detailsJSON := []byte("null")
	if rec.ErrorDetails != nil {
		detailsJSON, err = json.Marshal(rec.ErrorDetails)
		if err != nil {
			return nil, fmt.Errorf("marshaling error details: %w", err)
		}
	}

	return map[string]interface{}{
		"id":            rec.ID,
		"source":        rec.Source,
		"payload":       string(rec.Payload),
		"headers":       string(headersJSON),
		"target_url":    rec.TargetURL,
		"error_message": rec.ErrorMessage,
		"error_details": string(detailsJSON),
		"status":        rec.Status.String(),
		"created_at":    rec.CreatedAt.Format(time.RFC3339Nano),
	}, nil
}

func parseRecord(values map[string]interface{}) (failure.Record, error) {
	rec := failure.Record{
		ID:           str(values["id"]),
		Source:       str(values["source"]),
		Payload:      json.RawMessage(str(values["payload"])),
		TargetURL:    str(values["target_url"]),
		ErrorMessage: str(values["error_message"]),
		Status:       failure.NewStatus(str(values["status"])),
	}

	if h := str(values["headers"]); h != "" {
		if err := json.Unmarshal([]byte(h), &rec.Headers); err != nil {
			return failure.Record{}, fmt.Errorf("unmarshaling headers: %w", err)
		}
	}
	if d := str(values["error_details"]); d != "" && d != "null" {
		if err := json.Unmarshal([]byte(d), &rec.ErrorDetails); err != nil {
			return failure.Record{}, fmt.Errorf("unmarshaling error details: %w", err)
		}
	}

	createdAt, err := time.Parse(time.RFC3339Nano, str(values["created_at"]))
	if err != nil {
		return failure.Record{}, fmt.Errorf("parsing created_at: %w", err)
	}
	rec.CreatedAt = createdAt
	return rec, nil
}

func parseUndefined(values map[string]interface{}) (failure.UndefinedRoute, error) {
	route := failure.UndefinedRoute{
		ID:     str(values["id"]),
		Method: str(values["method"]),
		URL:    str(values["url"]),
		Body:   json.RawMessage(str(values["body"])),
	}
	if h := str(values["headers"]); h != "" {
		if err := json.Unmarshal([]byte(h), &route.Headers); err != nil {
			return failure.UndefinedRoute{}, fmt.Errorf("unmarshaling headers: %w", err)
		}
	}
	createdAt, err := time.Parse(time.RFC3339Nano, str(values["created_at"]))
	if err != nil {
		return failure.UndefinedRoute{}, fmt.Errorf("parsing created_at: %w", err)
	}
	route.CreatedAt = createdAt
	return route, nil
}

func str(v interface{}) string {
	s, _ := v.(string)
	return s
}
