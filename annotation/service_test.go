package annotation_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/absmach/roadlens/annotation"
	pkgerrors "github.com/absmach/roadlens/pkg/errors"
	"github.com/absmach/roadlens/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() annotation.Service {
	return annotation.NewService(storage.NewInMemoryRepository(), slog.New(slog.DiscardHandler))
}

func TestSave(t *testing.T) {
	cases := []struct {
		desc string
		data map[string]any
		err  error
	}{
		{desc: "annotation", data: map[string]any{"label": "car", "x": 1.5}},
		{desc: "empty annotation", data: map[string]any{}, err: pkgerrors.ErrMalformedEntity},
		{desc: "nil annotation", err: pkgerrors.ErrMalformedEntity},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			svc := newService()

			a, err := svc.Save(context.Background(), tc.data)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, a.ID)
			assert.False(t, a.CreatedAt.IsZero())
			assert.Equal(t, tc.data, a.Data)

			got, err := svc.View(context.Background(), a.ID)
			require.NoError(t, err)
			assert.Equal(t, a.ID, got.ID)
		})
	}
}

func TestViewDeleteEmptyID(t *testing.T) {
	svc := newService()

	_, err := svc.View(context.Background(), "")
	assert.ErrorIs(t, err, pkgerrors.ErrEmptyID)
	assert.ErrorIs(t, svc.Delete(context.Background(), ""), pkgerrors.ErrEmptyID)
	assert.ErrorIs(t, svc.Delete(context.Background(), "missing"), pkgerrors.ErrNotFound)
}

func TestList(t *testing.T) {
	svc := newService()

	page, err := svc.List(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.NotNil(t, page.Annotations)
	assert.Empty(t, page.Annotations)

	ids := make([]string, 0, 3)
	for i := range 3 {
		a, err := svc.Save(context.Background(), map[string]any{"n": i})
		require.NoError(t, err)
		ids = append(ids, a.ID)
	}

	page, err = svc.List(context.Background(), 0, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), page.Total)
	require.Len(t, page.Annotations, 2)
	assert.Equal(t, ids[2], page.Annotations[0].ID)
	assert.Equal(t, ids[1], page.Annotations[1].ID)
}
