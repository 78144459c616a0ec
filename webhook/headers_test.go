package webhook

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeHeaders(t *testing.T) {
	in := http.Header{
		"host":              {"inbound.example.com"},
		"CONNECTION":        {"keep-alive"},
		"Content-Length":    {"42"},
		"transfer-Encoding": {"chunked"},
		"Expect":            {"100-continue"},
		"x-hub-signature":   {"sha256=abc"},
		"User-Agent":        {"facebookexternalua"},
		"X-Empty":           {},
	}

	got := SanitizeHeaders(in)

	t.Run("drops excluded headers regardless of casing", func(t *testing.T) {
		for _, name := range []string{"Host", "Connection", "Content-Length", "Transfer-Encoding", "Expect"} {
			assert.Empty(t, got.Values(name), name)
		}
		assert.Len(t, got, 2)
	})

	t.Run("canonicalizes the rest", func(t *testing.T) {
		assert.Equal(t, []string{"sha256=abc"}, got["X-Hub-Signature"])
		assert.Equal(t, "facebookexternalua", got.Get("User-Agent"))
	})

	t.Run("is idempotent", func(t *testing.T) {
		assert.Equal(t, got, SanitizeHeaders(got))
	})

	t.Run("does not mutate the input", func(t *testing.T) {
		assert.Equal(t, []string{"inbound.example.com"}, in["host"])
		assert.Len(t, in, 8)
	})

	t.Run("nil input", func(t *testing.T) {
		assert.Empty(t, SanitizeHeaders(nil))
	})
}

func TestBuildHeaders(t *testing.T) {
	t.Run("explicit headers win", func(t *testing.T) {
		h := BuildHeaders(
			http.Header{"X-Request-Id": {"inbound"}, "Content-Type": {"text/plain"}},
			http.Header{"x-request-id": {"relay"}},
		)
		assert.Equal(t, []string{"relay"}, h.Values("X-Request-Id"))
		assert.Equal(t, "text/plain", h.Get("Content-Type"))
	})

	t.Run("content type defaults to json", func(t *testing.T) {
		h := BuildHeaders(http.Header{"Accept": {"*/*"}}, nil)
		assert.Equal(t, DefaultContentType, h.Get("Content-Type"))
	})

	t.Run("explicit headers are sanitized too", func(t *testing.T) {
		h := BuildHeaders(nil, http.Header{"Host": {"evil.example.com"}})
		assert.Empty(t, h.Get("Host"))
	})
}

func TestIsExcludedHeader(t *testing.T) {
	assert.True(t, IsExcludedHeader(" Transfer-Encoding "))
	assert.True(t, IsExcludedHeader("HOST"))
	assert.True(t, IsExcludedHeader("accept-encoding"))
	assert.False(t, IsExcludedHeader("X-Forwarded-For"))
}
