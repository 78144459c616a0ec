package failure

import (
	"encoding/json"
	"time"
)

// NotConfiguredTarget is stored as the target URL when no destination
// could be resolved for a source.
const NotConfiguredTarget = "NOT_CONFIGURED"

/* Status of a failure record
 * Records are append-only, so every record stays in the status it was written with
 */
type Status string

const (
	StatusFailed Status = "failed"
)

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// NewStatus creates a Status from a string, defaulting to failed
func NewStatus(s string) Status {
	switch Status(s) {
	case StatusFailed:
		return StatusFailed
	default:
		return StatusFailed
	}
}

// Details carries structured diagnostics for a failed attempt, e.g. the
// downstream status code and body, or the values of a rejected handshake.
type Details map[string]any

/* Record is a delivery attempt that was not delivered
 * Uses value semantics as it represents data, not behavior
 */
type Record struct {
	ID           string              `json:"id"`
	Source       string              `json:"source"`
	Payload      json.RawMessage     `json:"payload"`
	Headers      map[string][]string `json:"headers"`
	TargetURL    string              `json:"target_url"`
	ErrorMessage string              `json:"error_message"`
	ErrorDetails Details             `json:"error_details,omitempty"`
	Status       Status              `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
}

// UndefinedRoute is an inbound request that matched no handler.
type UndefinedRoute struct {
	ID        string              `json:"id"`
	Method    string              `json:"method"`
	URL       string              `json:"url"`
	Headers   map[string][]string `json:"headers"`
	Body      json.RawMessage     `json:"body"`
	CreatedAt time.Time           `json:"created_at"`
}

// Filter selects records on the read side. An empty Source matches all records.
type Filter struct {
	Source string
}

// Matches reports whether the record passes the filter
func (f Filter) Matches(r Record) bool {
	return f.Source == "" || f.Source == r.Source
}
