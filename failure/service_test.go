package failure_test

import (
	"context"
	"errors"
	"testing"

	"github.com/marcelsud/webhook-relay/failure"
	"github.com/marcelsud/webhook-relay/failure/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	ctx := context.Background()

	t.Run("success - stamps id, time and default status", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := failure.NewService(repo)

		repo.On("Append", ctx, failure.MatchRecord(func(r failure.Record) bool {
			return r.Source == "whatsapp" &&
				r.ID != "" &&
				!r.CreatedAt.IsZero() &&
				r.Status == failure.StatusFailed &&
				r.TargetURL == "https://example.com/hook" &&
				string(r.Payload) == `{"a":1}`
		})).Return(nil)

		id, err := service.Record(ctx, failure.Record{
			Source:       " whatsapp ",
			Payload:      []byte(`{"a":1}`),
			TargetURL:    "https://example.com/hook",
			ErrorMessage: "connection refused",
		})

		require.NoError(t, err)
		assert.NotEmpty(t, id)
	})

	t.Run("missing target is stored as NOT_CONFIGURED", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := failure.NewService(repo)

		repo.On("Append", ctx, failure.MatchRecord(func(r failure.Record) bool {
			return r.TargetURL == failure.NotConfiguredTarget && string(r.Payload) == "null"
		})).Return(nil)

		_, err := service.Record(ctx, failure.Record{Source: "github", ErrorMessage: "not configured"})
		require.NoError(t, err)
	})

	t.Run("error message is required", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := failure.NewService(repo)

		_, err := service.Record(ctx, failure.Record{Source: "github"})

		require.Error(t, err)
		assert.ErrorIs(t, err, failure.ErrInvalidRecord)
	})

	t.Run("source is required", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := failure.NewService(repo)

		_, err := service.Record(ctx, failure.Record{Source: "  ", ErrorMessage: "boom"})

		require.Error(t, err)
		assert.ErrorIs(t, err, failure.ErrInvalidRecord)
	})

	t.Run("backend errors become storage errors", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := failure.NewService(repo)
		backendErr := errors.New("redis down")

		repo.On("Append", ctx, failure.MatchRecord(func(failure.Record) bool { return true })).Return(backendErr)

		_, err := service.Record(ctx, failure.Record{Source: "github", ErrorMessage: "boom"})

		var storageErr *failure.StorageError
		require.ErrorAs(t, err, &storageErr)
		assert.ErrorIs(t, err, backendErr)
		assert.Equal(t, "append", storageErr.Op)
	})
}

func TestRecordUndefined(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := failure.NewService(repo)

		repo.On("AppendUndefined", ctx, failure.MatchUndefined(func(u failure.UndefinedRoute) bool {
			return u.Method == "PUT" && u.URL == "/nope" && u.ID != "" && !u.CreatedAt.IsZero()
		})).Return(nil)

		id, err := service.RecordUndefined(ctx, failure.UndefinedRoute{Method: "PUT", URL: "/nope"})

		require.NoError(t, err)
		assert.NotEmpty(t, id)
	})

	t.Run("method and url are required", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := failure.NewService(repo)

		_, err := service.RecordUndefined(ctx, failure.UndefinedRoute{Method: "GET"})

		assert.ErrorIs(t, err, failure.ErrInvalidRecord)
	})
}

func TestQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("empty result is an empty slice", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := failure.NewService(repo)

		repo.On("Query", ctx, failure.Filter{Source: "github"}).Return(nil, nil)

		records, err := service.Query(ctx, failure.Filter{Source: " github "})

		require.NoError(t, err)
		assert.NotNil(t, records)
		assert.Empty(t, records)
	})

	t.Run("backend error", func(t *testing.T) {
		repo := mocks.NewRepository(t)
		service := failure.NewService(repo)

		repo.On("Query", ctx, failure.Filter{}).Return(nil, errors.New("timeout"))

		_, err := service.Query(ctx, failure.Filter{})

		var storageErr *failure.StorageError
		assert.ErrorAs(t, err, &storageErr)
	})
}

func TestFilter_Matches(t *testing.T) {
	assert.True(t, failure.Filter{}.Matches(failure.Record{Source: "a"}))
	assert.True(t, failure.Filter{Source: "a"}.Matches(failure.Record{Source: "a"}))
	assert.False(t, failure.Filter{Source: "a"}.Matches(failure.Record{Source: "b"}))
}
