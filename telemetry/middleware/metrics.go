package middleware

import (
	"context"
	"io"
	"time"

	"github.com/absmach/roadlens/telemetry"
	"github.com/go-kit/kit/metrics"
)

var _ telemetry.Service = (*metricsMiddleware)(nil)

type metricsMiddleware struct {
	counter metrics.Counter
	latency metrics.Histogram
	svc     telemetry.Service
}

func Metrics(counter metrics.Counter, latency metrics.Histogram, svc telemetry.Service) telemetry.Service {
	return &metricsMiddleware{
		counter: counter,
		latency: latency,
		svc:     svc,
	}
}

func (mm *metricsMiddleware) Aggregate(ctx context.Context, r io.Reader) (telemetry.Result, error) {
	defer func(begin time.Time) {
		mm.counter.With("method", "aggregate").Add(1)
		mm.latency.With("method", "aggregate").Observe(time.Since(begin).Seconds())
	}(time.Now())

	return mm.svc.Aggregate(ctx, r)
}
