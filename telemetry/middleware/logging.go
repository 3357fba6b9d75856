package middleware

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/absmach/roadlens/telemetry"
)

var _ telemetry.Service = (*loggingMiddleware)(nil)

type loggingMiddleware struct {
	logger *slog.Logger
	svc    telemetry.Service
}

func Logging(logger *slog.Logger, svc telemetry.Service) telemetry.Service {
	return &loggingMiddleware{
		logger: logger,
		svc:    svc,
	}
}

func (lm *loggingMiddleware) Aggregate(ctx context.Context, r io.Reader) (res telemetry.Result, err error) {
	defer func(begin time.Time) {
		args := []any{
			slog.String("duration", time.Since(begin).String()),
		}
		if err != nil {
			args = append(args, slog.Any("error", err))
			lm.logger.Warn("Aggregate sensor stream failed", args...)

			return
		}
		args = append(args, slog.Int("vehicles", len(res)))
		lm.logger.Info("Aggregate sensor stream completed successfully", args...)
	}(time.Now())

	return lm.svc.Aggregate(ctx, r)
}
