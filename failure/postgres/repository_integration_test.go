//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-relay/failure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_Integration(t *testing.T) {
	ctx := context.Background()
	repo, cleanup := SetupPostgresRepository(t, ctx)
	defer cleanup()

	ids := make([]string, 0, 4)
	for i, source := range []string{"whatsapp", "github", "whatsapp", "whatsapp"} {
		id := uuid.NewString()
		ids = append(ids, id)
		err := repo.Append(ctx, failure.Record{
			ID:           id,
			Source:       source,
			Payload:      []byte(fmt.Sprintf(`{"n":%d}`, i)),
			Headers:      map[string][]string{"Content-Type": {"application/json"}},
			TargetURL:    "https://example.com",
			ErrorMessage: "timeout",
			ErrorDetails: failure.Details{"kind": "timeout"},
			Status:       failure.StatusFailed,
			CreatedAt:    time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	records, err := repo.Query(ctx, failure.Filter{Source: "whatsapp"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, ids[0], records[0].ID)
	assert.Equal(t, ids[2], records[1].ID)
	assert.Equal(t, ids[3], records[2].ID)
	assert.Equal(t, "timeout", records[0].ErrorDetails["kind"])

	counts, err := repo.CountBySource(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts["whatsapp"])

	require.NoError(t, repo.AppendUndefined(ctx, failure.UndefinedRoute{
		ID: uuid.NewString(), Method: "GET", URL: "/nope", Headers: map[string][]string{}, Body: []byte("null"), CreatedAt: time.Now().UTC(),
	}))
	routes, err := repo.QueryUndefined(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, routes, 1)
}
