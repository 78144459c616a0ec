package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marcelsud/webhook-relay/failure"
	"github.com/marcelsud/webhook-relay/failure/memory"
	"github.com/marcelsud/webhook-relay/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCounter struct{}

func (failingCounter) CountBySource(context.Context) (map[string]int64, error) {
	return nil, errors.New("store down")
}

func (failingCounter) CountUndefined(context.Context) (int64, error) {
	return 0, errors.New("store down")
}

func seededStore(t *testing.T) *memory.Repository {
	t.Helper()
	ctx := context.Background()
	repo := memory.NewRepository()
	require.NoError(t, repo.Append(ctx, failure.Record{ID: "1", Source: "github"}))
	require.NoError(t, repo.Append(ctx, failure.Record{ID: "2", Source: "github"}))
	require.NoError(t, repo.Append(ctx, failure.Record{ID: "3", Source: "whatsapp"}))
	require.NoError(t, repo.AppendUndefined(ctx, failure.UndefinedRoute{ID: "4", Method: "GET", URL: "/nope"}))
	return repo
}

func TestStoreCollector_Collect(t *testing.T) {
	t.Run("counts per source", func(t *testing.T) {
		collector := NewStoreCollector(seededStore(t))

		m, err := collector.Collect(context.Background())
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"github": 2, "whatsapp": 1}, m.FailuresBySource)
		assert.Equal(t, int64(1), m.UndefinedRoutes)
		assert.Equal(t, int64(3), m.Total())
		assert.False(t, m.Timestamp.IsZero())
	})

	t.Run("store errors are wrapped", func(t *testing.T) {
		_, err := NewStoreCollector(failingCounter{}).Collect(context.Background())
		assert.ErrorContains(t, err, "getting failures by source")
	})
}

func TestOTelExporter(t *testing.T) {
	exporter, err := NewOTelExporter(NewStoreCollector(seededStore(t)))
	require.NoError(t, err)
	defer exporter.Shutdown(context.Background())

	ctx := context.Background()
	exporter.ObserveAttempt(ctx, "github", webhook.Detached, webhook.Delivered, 20*time.Millisecond)
	exporter.ObserveAttempt(ctx, "github", webhook.Detached, webhook.Failed, time.Second)
	exporter.ObserveDetached(ctx, 1)

	srv := httptest.NewServer(exporter.ServeHTTP())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, text, "webhook_forward_attempts")
	assert.Contains(t, text, "webhook_forward_duration")
	assert.Contains(t, text, "webhook_detached_inflight")
	assert.Contains(t, text, "webhook_failures_recorded")
	assert.Contains(t, text, `webhook_source="whatsapp"`)
	assert.Contains(t, text, `webhook_outcome="failed"`)
}
