package middleware

import (
	"context"
	"io"

	"github.com/absmach/roadlens/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ telemetry.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    telemetry.Service
}

func Tracing(tracer trace.Tracer, svc telemetry.Service) telemetry.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Aggregate(ctx context.Context, r io.Reader) (res telemetry.Result, err error) {
	ctx, span := tm.tracer.Start(ctx, "aggregate")
	defer func() {
		span.SetAttributes(attribute.Int("vehicles", len(res)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	return tm.svc.Aggregate(ctx, r)
}
