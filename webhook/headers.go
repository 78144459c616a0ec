package webhook

import (
	"net/http"
	"strings"
)

// DefaultContentType is set on every forward that does not carry one
const DefaultContentType = "application/json"

// excludedHeaders are hop-by-hop or framing headers that describe the
// inbound connection, not the payload. Keys are lower-case.
// Accept-Encoding is left to the transport so it decompresses responses.
var excludedHeaders = map[string]struct{}{
	"host":              {},
	"connection":        {},
	"content-length":    {},
	"transfer-encoding": {},
	"expect":            {},
	"accept-encoding":   {},
}

// IsExcludedHeader reports whether name is dropped when forwarding, regardless of casing
func IsExcludedHeader(name string) bool {
	_, ok := excludedHeaders[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// SanitizeHeaders returns a canonicalized copy of h without the excluded
// headers. The input is never modified, and applying it twice gives the
// same result as applying it once.
func SanitizeHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for name, values := range h {
		if IsExcludedHeader(name) || len(values) == 0 {
			continue
		}
		key := http.CanonicalHeaderKey(name)
		out[key] = append(out[key], values...)
	}
	return out
}

// BuildHeaders merges the sanitized inbound headers with explicit ones.
// Explicit headers win, Content-Type falls back to DefaultContentType.
func BuildHeaders(forwarded, explicit http.Header) http.Header {
	h := SanitizeHeaders(forwarded)
	for name, values := range SanitizeHeaders(explicit) {
		h[name] = append([]string(nil), values...)
	}
	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", DefaultContentType)
	}
	return h
}
