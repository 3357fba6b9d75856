package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/absmach/roadlens/annotation"
	pkgerrors "github.com/absmach/roadlens/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnotation(createdAt time.Time) annotation.Annotation {
	return annotation.Annotation{
		ID: uuid.NewString(),
		Data: map[string]any{
			"label": "car",
			"x":     12.5,
			"y":     40.0,
			"tags":  []any{"front", "occluded"},
			"box":   map[string]any{"width": 100.0, "height": 50.0},
		},
		CreatedAt: createdAt.UTC().Truncate(time.Millisecond),
	}
}

// RunRepositoryTests exercises the annotation.Repository contract against
// the repository returned by newRepo. newRepo must return an empty store.
func RunRepositoryTests(t *testing.T, newRepo func(t *testing.T) annotation.Repository) {
	t.Helper()
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		repo := newRepo(t)
		a := TestAnnotation(time.Now())
		require.NoError(t, repo.Create(ctx, a))

		got, err := repo.Get(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
		assert.Equal(t, a.Data, got.Data)
		assert.True(t, a.CreatedAt.Equal(got.CreatedAt), "created_at %s != %s", a.CreatedAt, got.CreatedAt)
	})

	t.Run("duplicate id", func(t *testing.T) {
		repo := newRepo(t)
		a := TestAnnotation(time.Now())
		require.NoError(t, repo.Create(ctx, a))
		assert.ErrorIs(t, repo.Create(ctx, a), pkgerrors.ErrEntityExists)
	})

	t.Run("get missing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Get(ctx, uuid.NewString())
		assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
	})

	t.Run("list newest first with paging", func(t *testing.T) {
		repo := newRepo(t)
		base := time.Now().Add(-time.Hour)
		ids := make([]string, 5)
		for i := range ids {
			a := TestAnnotation(base.Add(time.Duration(i) * time.Minute))
			a.Data["seq"] = fmt.Sprint(i)
			ids[i] = a.ID
			require.NoError(t, repo.Create(ctx, a))
		}

		page, total, err := repo.List(ctx, 0, 2)
		require.NoError(t, err)
		assert.Equal(t, uint64(5), total)
		require.Len(t, page, 2)
		assert.Equal(t, ids[4], page[0].ID)
		assert.Equal(t, ids[3], page[1].ID)

		page, _, err = repo.List(ctx, 4, 10)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, ids[0], page[0].ID)

		page, total, err = repo.List(ctx, 10, 10)
		require.NoError(t, err)
		assert.Empty(t, page)
		assert.Equal(t, uint64(5), total)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		a := TestAnnotation(time.Now())
		require.NoError(t, repo.Create(ctx, a))
		require.NoError(t, repo.Delete(ctx, a.ID))

		_, err := repo.Get(ctx, a.ID)
		assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, a.ID), pkgerrors.ErrNotFound)

		_, total, err := repo.List(ctx, 0, 10)
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}
