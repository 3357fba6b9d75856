package middleware

import (
	"context"
	"time"

	"github.com/absmach/roadlens/annotation"
	"github.com/go-kit/kit/metrics"
)

var _ annotation.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     annotation.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc annotation.Service) annotation.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) Save(ctx context.Context, data map[string]any) (annotation.Annotation, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "save").Add(1)
		mm.latency.With("method", "save").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Save(ctx, data)
}

func (mm *metricsMiddleware) View(ctx context.Context, id string) (annotation.Annotation, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "view").Add(1)
		mm.latency.With("method", "view").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.View(ctx, id)
}

func (mm *metricsMiddleware) List(ctx context.Context, offset, limit uint64) (annotation.Page, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "list").Add(1)
		mm.latency.With("method", "list").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.List(ctx, offset, limit)
}

func (mm *metricsMiddleware) Delete(ctx context.Context, id string) error {
	defer func(begin time.Time) {
		mm.counter.With("method", "delete").Add(1)
		mm.latency.With("method", "delete").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Delete(ctx, id)
}
