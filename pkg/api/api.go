package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	pkgerrors "github.com/absmach/roadlens/pkg/errors"
	kithttp "github.com/go-kit/kit/transport/http"
)

const (
	OffsetKey = "offset"
	LimitKey  = "limit"
	DefOffset = 0
	DefLimit  = 10

	ContentType = "application/json"

	MaxLimitSize = 100
)

// Response carries transport metadata alongside its JSON body.
type Response interface {
	Code() int
	Headers() map[string]string
	Empty() bool
}

type errorBody struct {
	Error string `json:"error"`
}

func EncodeResponse(_ context.Context, w http.ResponseWriter, response any) error {
	w.Header().Set("Content-Type", ContentType)
	if ar, ok := response.(Response); ok {
		for k, v := range ar.Headers() {
			w.Header().Set(k, v)
		}
		w.WriteHeader(ar.Code())

		if ar.Empty() {
			return nil
		}
	}

	return json.NewEncoder(w).Encode(response)
}

// StatusCode maps the shared sentinel errors to HTTP statuses.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrMalformedEntity),
		errors.Is(err, pkgerrors.ErrEmptyID),
		errors.Is(err, pkgerrors.ErrLimitSize):
		return http.StatusBadRequest
	case errors.Is(err, pkgerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrEntityExists):
		return http.StatusConflict
	case errors.Is(err, pkgerrors.ErrUnsupportedContentType):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

func EncodeError(_ context.Context, err error, w http.ResponseWriter) {
	EncodeErrorWithStatus(w, StatusCode(err), err)
}

func EncodeErrorWithStatus(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", ContentType)
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(errorBody{Error: err.Error()})
}

// LoggingErrorEncoder logs err at warn level before delegating to enc.
func LoggingErrorEncoder(logger *slog.Logger, enc kithttp.ErrorEncoder) kithttp.ErrorEncoder {
	return func(ctx context.Context, err error, w http.ResponseWriter) {
		logger.Warn("Request failed", slog.String("error", err.Error()))
		enc(ctx, err, w)
	}
}

// ReadUintQuery reads a single non-negative integer query parameter.
func ReadUintQuery(r *http.Request, key string, def uint64) (uint64, error) {
	vals := r.URL.Query()[key]
	switch len(vals) {
	case 0:
		return def, nil
	case 1:
	default:
		return 0, errors.Join(pkgerrors.ErrMalformedEntity, fmt.Errorf("query parameter %q repeated", key))
	}

	v, err := strconv.ParseUint(vals[0], 10, 64)
	if err != nil {
		return 0, errors.Join(pkgerrors.ErrMalformedEntity, fmt.Errorf("query parameter %q: %w", key, err))
	}

	return v, nil
}
