package middleware

import (
	"context"

	"github.com/absmach/roadlens/inference"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ inference.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    inference.Service
}

func Tracing(tracer trace.Tracer, svc inference.Service) inference.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Infer(ctx context.Context, req inference.Request) (dets []inference.Detection, err error) {
	ctx, span := tm.tracer.Start(ctx, "infer", trace.WithAttributes(
		attribute.String("locator", req.ImageLocator),
		attribute.Float64("threshold", req.Threshold),
	))
	defer func() {
		span.SetAttributes(attribute.Int("detections", len(dets)))
		if err != nil {
			span.SetAttributes(attribute.String("kind", inference.KindOf(err).String()))
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	return tm.svc.Infer(ctx, req)
}
