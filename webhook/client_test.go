package webhook

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientSend(t *testing.T) {
	ctx := context.Background()

	t.Run("success - forwards body and sanitized headers", func(t *testing.T) {
		var got *http.Request
		var gotBody []byte
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Clone(context.Background())
			gotBody, _ = io.ReadAll(r.Body)
			w.Header().Set("X-Downstream", "yes")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		target, _ := url.Parse(srv.URL)
		resp, err := NewClient().Send(ctx, OutboundRequest{
			URL:  srv.URL + "/hooks",
			Body: []byte(`{"a":1}`),
			Forwarded: http.Header{
				"Host":            {"inbound.example.com"},
				"Connection":      {"close"},
				"X-Hub-Signature": {"sha256=abc"},
			},
		})

		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.Status)
		assert.JSONEq(t, `{"ok":true}`, string(resp.Body))
		assert.Equal(t, "yes", resp.Headers.Get("X-Downstream"))

		require.NotNil(t, got)
		assert.Equal(t, http.MethodPost, got.Method)
		assert.Equal(t, target.Host, got.Host)
		assert.Equal(t, "sha256=abc", got.Header.Get("X-Hub-Signature"))
		assert.Equal(t, DefaultContentType, got.Header.Get("Content-Type"))
		assert.Equal(t, `{"a":1}`, string(gotBody))
	})

	t.Run("non-2xx - downstream error with status and body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("maintenance"))
		}))
		defer srv.Close()

		_, err := NewClient().Send(ctx, OutboundRequest{URL: srv.URL})

		var downstreamErr *DownstreamError
		require.True(t, errors.As(err, &downstreamErr))
		assert.Equal(t, http.StatusServiceUnavailable, downstreamErr.Status)
		assert.Equal(t, "maintenance", string(downstreamErr.Body))
		assert.Equal(t, KindDownstreamStatus, Kind(err))

		details := ErrorDetails(err)
		assert.Equal(t, http.StatusServiceUnavailable, details["status"])
		assert.Equal(t, "maintenance", details["response"])
		assert.Equal(t, "downstream_status", details["kind"])
	})

	t.Run("gzipped error body is stored decompressed", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("service unavailable"))
				return
			}
			w.Header().Set("Content-Encoding", "gzip")
			w.WriteHeader(http.StatusServiceUnavailable)
			gz := gzip.NewWriter(w)
			gz.Write([]byte("service unavailable"))
			gz.Close()
		}))
		defer srv.Close()

		_, err := NewClient().Send(ctx, OutboundRequest{
			URL:       srv.URL,
			Body:      []byte(`{}`),
			Forwarded: http.Header{"Accept-Encoding": {"gzip, deflate, br"}},
		})

		require.Error(t, err)
		assert.Equal(t, "service unavailable", ErrorDetails(err)["response"])
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer srv.Close()
		defer close(release)

		_, err := NewClient(WithTimeout(50*time.Millisecond)).Send(ctx, OutboundRequest{URL: srv.URL})
		require.Error(t, err)
		assert.Equal(t, KindTimeout, Kind(err))
	})

	t.Run("connection refused", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := ln.Addr().String()
		ln.Close()

		_, err = NewClient().Send(ctx, OutboundRequest{URL: "http://" + addr})
		require.Error(t, err)
		assert.Equal(t, KindConnectionRefused, Kind(err))
	})

	t.Run("connection reset", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, _, err := http.NewResponseController(w).Hijack()
			if err == nil {
				conn.Close()
			}
		}))
		defer srv.Close()

		_, err := NewClient().Send(ctx, OutboundRequest{URL: srv.URL, Body: []byte(`{}`)})
		require.Error(t, err)
		assert.Equal(t, KindConnectionReset, Kind(err))
	})

	t.Run("too many redirects", func(t *testing.T) {
		var srv *httptest.Server
		srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, srv.URL+"/again", http.StatusTemporaryRedirect)
		}))
		defer srv.Close()

		_, err := NewClient(WithMaxRedirects(2)).Send(ctx, OutboundRequest{URL: srv.URL})
		require.Error(t, err)
		assert.Equal(t, KindTooManyRedirects, Kind(err))
	})

	t.Run("invalid target", func(t *testing.T) {
		for _, target := range []string{"", "ftp://example.com", "/relative", "http://"} {
			_, err := NewClient().Send(ctx, OutboundRequest{URL: target})
			assert.Equal(t, KindInvalidRequest, Kind(err), target)
		}
	})
}

func TestErrorDetails(t *testing.T) {
	err := &NetworkError{Kind: KindTimeout, Method: http.MethodPost, URL: "http://x", Err: context.DeadlineExceeded}
	details := ErrorDetails(err)

	assert.Equal(t, "timeout", details["kind"])
	assert.Equal(t, context.DeadlineExceeded.Error(), details["cause"])
	assert.Contains(t, details["message"], "POST http://x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
