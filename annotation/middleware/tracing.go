package middleware

import (
	"context"

	"github.com/absmach/roadlens/annotation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ annotation.Service = (*tracing)(nil)

type tracing struct {
	tracer trace.Tracer
	svc    annotation.Service
}

func Tracing(tracer trace.Tracer, svc annotation.Service) annotation.Service {
	return &tracing{tracer, svc}
}

func (tm *tracing) Save(ctx context.Context, data map[string]any) (a annotation.Annotation, err error) {
	ctx, span := tm.tracer.Start(ctx, "save_annotation")
	defer func() {
		span.SetAttributes(attribute.String("id", a.ID))
		end(span, err)
	}()

	return tm.svc.Save(ctx, data)
}

func (tm *tracing) View(ctx context.Context, id string) (annotation.Annotation, error) {
	ctx, span := tm.tracer.Start(ctx, "view_annotation", trace.WithAttributes(attribute.String("id", id)))
	a, err := tm.svc.View(ctx, id)
	end(span, err)

	return a, err
}

func (tm *tracing) List(ctx context.Context, offset, limit uint64) (annotation.Page, error) {
	ctx, span := tm.tracer.Start(ctx, "list_annotations", trace.WithAttributes(
		attribute.Int64("offset", int64(offset)),
		attribute.Int64("limit", int64(limit)),
	))
	page, err := tm.svc.List(ctx, offset, limit)
	end(span, err)

	return page, err
}

func (tm *tracing) Delete(ctx context.Context, id string) error {
	ctx, span := tm.tracer.Start(ctx, "delete_annotation", trace.WithAttributes(attribute.String("id", id)))
	err := tm.svc.Delete(ctx, id)
	end(span, err)

	return err
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
