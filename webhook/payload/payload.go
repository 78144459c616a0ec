package payload

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Capture turns an inbound body into something a failure record can store as JSON.
// Valid JSON is kept as-is, anything else is stored as a JSON string, an empty body is null.
func Capture(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(trimmed) {
		return append(json.RawMessage(nil), trimmed...)
	}

	encoded, err := json.Marshal(string(body))
	if err != nil {
		return json.RawMessage("null")
	}
	return encoded
}

// eventFields are checked in order when looking for the event name of a payload
var eventFields = []string{"type", "event", "event_type", "object"}

// EventType returns the event name carried by a JSON object payload, or "" when none is found.
// Used for logging only: the body is forwarded untouched.
func EventType(body []byte) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}

	for _, name := range eventFields {
		raw, ok := fields[name]
		if !ok {
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err == nil && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
