package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/absmach/roadlens/inference"
)

var _ inference.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    inference.Service
}

func Logging(logger *slog.Logger, svc inference.Service) inference.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) Infer(ctx context.Context, req inference.Request) (dets []inference.Detection, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
			slog.Group("request",
				slog.String("locator", req.ImageLocator),
				slog.Float64("threshold", req.Threshold),
			),
		}
		if err != nil {
			args = append(args,
				slog.String("kind", inference.KindOf(err).String()),
				slog.Any("error", err),
			)
			lm.logger.Warn("Infer failed", args...)

			return
		}
		args = append(args, slog.Int("detections", len(dets)))
		lm.logger.Info("Infer completed successfully", args...)
	}(time.Now())

	return lm.svc.Infer(ctx, req)
}
