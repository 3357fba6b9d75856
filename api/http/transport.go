// Package api exposes the inference, telemetry and annotation services over
// HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/absmach/roadlens"
	"github.com/absmach/roadlens/annotation"
	"github.com/absmach/roadlens/inference"
	"github.com/absmach/roadlens/pkg/api"
	pkgerrors "github.com/absmach/roadlens/pkg/errors"
	"github.com/absmach/roadlens/telemetry"
	"github.com/go-chi/chi/v5"
	kithttp "github.com/go-kit/kit/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	svcName    = "roadlens"
	idKey      = "id"
	maxReqSize = 1 << 20
)

// Services groups the domain services served by MakeHandler.
type Services struct {
	Inference   *inference.Runner
	Telemetry   telemetry.Service
	Annotations annotation.Service
}

// MakeHandler returns the router for svcs. Metrics are served from gatherer.
func MakeHandler(svcs Services, gatherer prometheus.Gatherer, logger *slog.Logger, instanceID string) *chi.Mux {
	mux := chi.NewRouter()

	opts := []kithttp.ServerOption{
		kithttp.ServerErrorEncoder(api.LoggingErrorEncoder(logger, encodeError)),
	}

	mux.Post("/inference", otelhttp.NewHandler(kithttp.NewServer(
		inferenceEndpoint(svcs.Inference),
		decodeInferenceReq,
		api.EncodeResponse,
		opts...,
	), "infer").ServeHTTP)

	mux.Post("/telemetry/aggregate", otelhttp.NewHandler(kithttp.NewServer(
		aggregateEndpoint(svcs.Telemetry),
		decodeAggregateReq,
		api.EncodeResponse,
		opts...,
	), "aggregate-telemetry").ServeHTTP)

	mux.Route("/annotations", func(r chi.Router) {
		r.Post("/", otelhttp.NewHandler(kithttp.NewServer(
			saveAnnotationEndpoint(svcs.Annotations),
			decodeSaveAnnotationReq,
			api.EncodeResponse,
			opts...,
		), "save-annotation").ServeHTTP)

		r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
			listAnnotationsEndpoint(svcs.Annotations),
			decodeListEntityReq,
			api.EncodeResponse,
			opts...,
		), "list-annotations").ServeHTTP)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", otelhttp.NewHandler(kithttp.NewServer(
				viewAnnotationEndpoint(svcs.Annotations),
				decodeEntityReq(idKey),
				api.EncodeResponse,
				opts...,
			), "view-annotation").ServeHTTP)

			r.Delete("/", otelhttp.NewHandler(kithttp.NewServer(
				deleteAnnotationEndpoint(svcs.Annotations),
				decodeEntityReq(idKey),
				api.EncodeResponse,
				opts...,
			), "delete-annotation").ServeHTTP)
		})
	})

	mux.Get("/health", roadlens.Health(svcName, instanceID))
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return mux
}

func encodeError(ctx context.Context, err error, w http.ResponseWriter) {
	if errors.Is(err, telemetry.ErrStreamParse) {
		api.EncodeErrorWithStatus(w, http.StatusBadRequest, err)

		return
	}

	api.EncodeError(ctx, err, w)
}

func checkContentType(r *http.Request) error {
	if !strings.Contains(r.Header.Get("Content-Type"), api.ContentType) {
		return pkgerrors.ErrUnsupportedContentType
	}

	return nil
}

func decodeInferenceReq(_ context.Context, r *http.Request) (any, error) {
	if err := checkContentType(r); err != nil {
		return nil, err
	}

	var req inferenceReq
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxReqSize)).Decode(&req.Request); err != nil {
		return nil, errors.Join(err, pkgerrors.ErrMalformedEntity)
	}

	return req, nil
}

// decodeAggregateReq hands the body to the aggregator unread.
func decodeAggregateReq(_ context.Context, r *http.Request) (any, error) {
	if err := checkContentType(r); err != nil {
		return nil, err
	}

	return aggregateReq{body: r.Body}, nil
}

func decodeSaveAnnotationReq(_ context.Context, r *http.Request) (any, error) {
	if err := checkContentType(r); err != nil {
		return nil, err
	}

	var req saveAnnotationReq
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxReqSize)).Decode(&req.data); err != nil {
		return nil, errors.Join(err, pkgerrors.ErrMalformedEntity)
	}

	return req, nil
}

func decodeEntityReq(key string) kithttp.DecodeRequestFunc {
	return func(_ context.Context, r *http.Request) (any, error) {
		return entityReq{
			id: chi.URLParam(r, key),
		}, nil
	}
}

func decodeListEntityReq(_ context.Context, r *http.Request) (any, error) {
	o, err := api.ReadUintQuery(r, api.OffsetKey, api.DefOffset)
	if err != nil {
		return nil, err
	}

	l, err := api.ReadUintQuery(r, api.LimitKey, api.DefLimit)
	if err != nil {
		return nil, err
	}

	return listEntityReq{
		offset: o,
		limit:  l,
	}, nil
}
