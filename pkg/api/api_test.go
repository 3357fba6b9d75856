package api_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/absmach/roadlens/pkg/api"
	pkgerrors "github.com/absmach/roadlens/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createdResponse struct {
	ID string `json:"id"`
}

func (createdResponse) Code() int { return http.StatusCreated }

func (r createdResponse) Headers() map[string]string {
	return map[string]string{"Location": "/things/" + r.ID}
}

func (createdResponse) Empty() bool { return false }

type deletedResponse struct{}

func (deletedResponse) Code() int                  { return http.StatusNoContent }
func (deletedResponse) Headers() map[string]string { return map[string]string{} }
func (deletedResponse) Empty() bool                { return true }

func TestStatusCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{err: pkgerrors.ErrMalformedEntity, want: http.StatusBadRequest},
		{err: fmt.Errorf("wrapped: %w", pkgerrors.ErrEmptyID), want: http.StatusBadRequest},
		{err: errors.Join(pkgerrors.ErrLimitSize, errors.New("limit 500")), want: http.StatusBadRequest},
		{err: pkgerrors.ErrNotFound, want: http.StatusNotFound},
		{err: pkgerrors.ErrEntityExists, want: http.StatusConflict},
		{err: pkgerrors.ErrUnsupportedContentType, want: http.StatusUnsupportedMediaType},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, api.StatusCode(tc.err))
		})
	}
}

func TestEncodeResponse(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	require.NoError(t, api.EncodeResponse(context.Background(), rec, createdResponse{ID: "42"}))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/things/42", rec.Header().Get("Location"))
	assert.Equal(t, api.ContentType, rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"42"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	require.NoError(t, api.EncodeResponse(context.Background(), rec, deletedResponse{}))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestLoggingErrorEncoder(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	enc := api.LoggingErrorEncoder(logger, api.EncodeError)

	rec := httptest.NewRecorder()
	enc(context.Background(), pkgerrors.ErrNotFound, rec)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
	assert.Contains(t, buf.String(), `"msg":"Request failed"`)
	assert.Contains(t, buf.String(), `"error":"not found"`)
}

func TestReadUintQuery(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc  string
		query string
		want  uint64
		err   error
	}{
		{desc: "missing uses default", query: "", want: 10},
		{desc: "valid value", query: "?limit=25", want: 25},
		{desc: "zero", query: "?limit=0", want: 0},
		{desc: "negative", query: "?limit=-1", err: pkgerrors.ErrMalformedEntity},
		{desc: "not a number", query: "?limit=abc", err: pkgerrors.ErrMalformedEntity},
		{desc: "repeated", query: "?limit=1&limit=2", err: pkgerrors.ErrMalformedEntity},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest(http.MethodGet, "/annotations"+tc.query, http.NoBody)
			got, err := api.ReadUintQuery(r, api.LimitKey, api.DefLimit)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
