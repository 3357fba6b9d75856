package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/roadlens/annotation"
)

var _ annotation.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    annotation.Service
}

func Logging(logger *slog.Logger, svc annotation.Service) annotation.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) Save(ctx context.Context, data map[string]any) (a annotation.Annotation, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Int("fields", len(data)),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Save annotation failed", args...)

			return
		}
		args = append(args, slog.String("id", a.ID))
		lm.logger.Info("Save annotation completed successfully", args...)
	}(time.Now())

	return lm.svc.Save(ctx, data)
}

func (lm *loggingMiddleware) View(ctx context.Context, id string) (a annotation.Annotation, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("id", id),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("View annotation failed", args...)

			return
		}
		lm.logger.Info("View annotation completed successfully", args...)
	}(time.Now())

	return lm.svc.View(ctx, id)
}

func (lm *loggingMiddleware) List(ctx context.Context, offset, limit uint64) (page annotation.Page, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("page",
				slog.Uint64("offset", offset),
				slog.Uint64("limit", limit),
			),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("List annotations failed", args...)

			return
		}
		args = append(args, slog.Uint64("total", page.Total))
		lm.logger.Info("List annotations completed successfully", args...)
	}(time.Now())

	return lm.svc.List(ctx, offset, limit)
}

func (lm *loggingMiddleware) Delete(ctx context.Context, id string) (err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.String("id", id),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Delete annotation failed", args...)

			return
		}
		lm.logger.Info("Delete annotation completed successfully", args...)
	}(time.Now())

	return lm.svc.Delete(ctx, id)
}
