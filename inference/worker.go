package inference

import (
	"context"
	"fmt"
	"log/slog"
)

var _ Service = (*worker)(nil)

type worker struct {
	model   *Model
	fetcher Fetcher
	prep    *Preprocessor
	labels  []string
	logger  *slog.Logger
}

func NewWorker(model *Model, fetcher Fetcher, prep *Preprocessor, labels []string, logger *slog.Logger) Service {
	if len(labels) == 0 {
		labels = DefaultLabels
	}

	return &worker{
		model:   model,
		fetcher: fetcher,
		prep:    prep,
		labels:  labels,
		logger:  logger,
	}
}

func (w *worker) Infer(ctx context.Context, req Request) ([]Detection, error) {
	locator := req.ImageLocator
	if err := req.Validate(); err != nil {
		return nil, w.fail(KindInvalidRequest, locator, err)
	}

	clf, err := step(func() (Classifier, error) { return w.model.Load(ctx) })
	if err != nil {
		return nil, w.fail(w.kind(ctx, KindModelLoad), locator, err)
	}

	data, err := step(func() ([]byte, error) { return w.fetcher.Fetch(ctx, locator) })
	if err != nil {
		return nil, w.fail(w.kind(ctx, KindImageFetch), locator, err)
	}
	w.logger.Info("Image fetched",
		slog.String("locator", locator),
		slog.Int("bytes", len(data)),
	)

	tensor, err := step(func() (*Tensor, error) { return w.prep.Preprocess(ctx, data) })
	data = nil
	if err != nil {
		return nil, w.fail(w.kind(ctx, KindPreprocess), locator, err)
	}
	defer tensor.Release()
	w.logger.Info("Image preprocessed",
		slog.String("locator", locator),
		slog.Any("shape", tensor.Shape),
	)

	scores, err := step(func() ([]float32, error) { return clf.Classify(ctx, tensor) })
	if err != nil {
		return nil, w.fail(w.kind(ctx, KindClassify), locator, err)
	}

	dets := Filter(scores, w.labels, req.Threshold)
	w.logger.Info("Prediction completed",
		slog.String("locator", locator),
		slog.Float64("threshold", req.Threshold),
		slog.Int("detections", len(dets)),
		slog.Any("results", dets),
	)

	return dets, nil
}

// kind attributes a failure to cancellation when the caller gave up.
func (w *worker) kind(ctx context.Context, k Kind) Kind {
	if ctx.Err() != nil {
		return KindCanceled
	}

	return k
}

func (w *worker) fail(kind Kind, locator string, err error) error {
	w.logger.Error(failureMessage(kind),
		slog.String("locator", locator),
		slog.String("kind", kind.String()),
		slog.Any("error", err),
	)

	return &Error{Kind: kind, Locator: locator, Err: err}
}

func failureMessage(kind Kind) string {
	switch kind {
	case KindInvalidRequest:
		return "Rejected inference request"
	case KindModelLoad:
		return "Failed to load model"
	case KindImageFetch:
		return "Failed to fetch image"
	case KindPreprocess:
		return "Failed to preprocess image"
	case KindClassify:
		return "Failed to classify image"
	case KindCanceled:
		return "Inference canceled"
	default:
		return "Inference failed"
	}
}

// step runs fn and turns a panic into an error.
func step[T any](fn func() (T, error)) (res T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errPanic, r)
		}
	}()

	return fn()
}
