//go:build integration

package redis_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/marcelsud/webhook-relay/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(id, source string) failure.Record {
	return failure.Record{
		ID:           id,
		Source:       source,
		Payload:      []byte(`{"entry":[{"id":"1"}]}`),
		Headers:      map[string][]string{"X-Hub-Signature-256": {"sha256=abc"}},
		TargetURL:    "https://example.com/" + source,
		ErrorMessage: "downstream returned 503",
		ErrorDetails: failure.Details{"status": 503, "response": "unavailable"},
		Status:       failure.StatusFailed,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestRepository_AppendQuery_Integration(t *testing.T) {
	ctx := context.Background()

	t.Run("records round trip and keep insertion order per source", func(t *testing.T) {
		redisContainer, cleanup := SetupRedisContainer(t, ctx)
		defer cleanup()

		repo := CreateTestRepository(t, redisContainer.Addr)
		defer repo.Close(ctx)

		for i, source := range []string{"whatsapp", "github", "whatsapp", "whatsapp"} {
			require.NoError(t, repo.Append(ctx, newRecord(fmt.Sprintf("rec-%d", i), source)))
		}

		records, err := repo.Query(ctx, failure.Filter{Source: "whatsapp"})
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "rec-0", records[0].ID)
		assert.Equal(t, "rec-2", records[1].ID)
		assert.Equal(t, "rec-3", records[2].ID)

		first := records[0]
		assert.JSONEq(t, `{"entry":[{"id":"1"}]}`, string(first.Payload))
		assert.Equal(t, []string{"sha256=abc"}, first.Headers["X-Hub-Signature-256"])
		assert.Equal(t, float64(503), first.ErrorDetails["status"])
		assert.Equal(t, failure.StatusFailed, first.Status)

		all, err := repo.Query(ctx, failure.Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 4)

		counts, err := repo.CountBySource(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), counts["whatsapp"])
		assert.Equal(t, int64(1), counts["github"])
	})

	t.Run("concurrent appends are all kept", func(t *testing.T) {
		redisContainer, cleanup := SetupRedisContainer(t, ctx)
		defer cleanup()

		repo := CreateTestRepository(t, redisContainer.Addr)
		defer repo.Close(ctx)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, repo.Append(ctx, newRecord(fmt.Sprintf("c-%d", i), "stripe")))
			}(i)
		}
		wg.Wait()

		records, err := repo.Query(ctx, failure.Filter{Source: "stripe"})
		require.NoError(t, err)
		assert.Len(t, records, 20)
	})
}

func TestRepository_Undefined_Integration(t *testing.T) {
	ctx := context.Background()

	redisContainer, cleanup := SetupRedisContainer(t, ctx)
	defer cleanup()

	repo := CreateTestRepository(t, redisContainer.Addr)
	defer repo.Close(ctx)

	for i := 0; i < 3; i++ {
		err := repo.AppendUndefined(ctx, failure.UndefinedRoute{
			ID:        fmt.Sprintf("u-%d", i),
			Method:    "POST",
			URL:       fmt.Sprintf("/unknown/%d", i),
			Headers:   map[string][]string{},
			Body:      []byte(`null`),
			CreatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	last, err := repo.QueryUndefined(ctx, 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "u-1", last[0].ID)
	assert.Equal(t, "u-2", last[1].ID)

	count, err := repo.CountUndefined(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
