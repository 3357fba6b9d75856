// Package telemetry computes per-vehicle mean speeds from a JSON sensor stream
// without holding the stream in memory.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// DefaultPath selects the records under the top-level "sensors" key.
var DefaultPath = []string{"sensors"}

// Result maps a vehicle identifier to its mean speed. Vehicles without a
// single valid reading are absent.
type Result map[string]float64

// AggregateEntry is the running state for one vehicle.
type AggregateEntry struct {
	Sum   float64
	Count uint64
}

func (e *AggregateEntry) Add(speed float64) {
	e.Sum += speed
	e.Count++
}

// Mean reports false for an entry that never received a reading.
func (e AggregateEntry) Mean() (float64, bool) {
	if e.Count == 0 {
		return 0, false
	}

	return e.Sum / float64(e.Count), true
}

type Service interface {
	// Aggregate consumes r to its end and returns the mean speed per vehicle.
	// Any stream level failure returns a *StreamParseError and no result.
	Aggregate(ctx context.Context, r io.Reader) (Result, error)
}

type Option func(*aggregator)

// WithPath sets the object keys leading to the record collection.
func WithPath(path ...string) Option {
	return func(a *aggregator) {
		if len(path) > 0 {
			a.path = path
		}
	}
}

var _ Service = (*aggregator)(nil)

type aggregator struct {
	path   []string
	logger *slog.Logger
}

func NewAggregator(logger *slog.Logger, opts ...Option) Service {
	a := &aggregator{
		path:   DefaultPath,
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *aggregator) Aggregate(ctx context.Context, r io.Reader) (Result, error) {
	if c, ok := r.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() {
			_ = c.Close()
		})
		defer stop()
	}

	entries := make(map[string]*AggregateEntry)
	records := 0
	for rec, err := range Records(ctx, r, a.path...) {
		var skipped *RecordSkippedError
		switch {
		case errors.As(err, &skipped):
			a.logger.Warn("Skipping sensor record",
				slog.Int("index", skipped.Index),
				slog.String("reason", skipped.Reason.Error()),
			)

			continue
		case err != nil:
			return nil, err
		}

		entry, ok := entries[rec.VehicleID]
		if !ok {
			entry = &AggregateEntry{}
			entries[rec.VehicleID] = entry
		}
		entry.Add(rec.Speed)
		records++
	}

	if err := ctx.Err(); err != nil {
		return nil, &StreamParseError{Records: records, Cause: err}
	}

	return reduce(entries), nil
}

func reduce(entries map[string]*AggregateEntry) Result {
	res := make(Result, len(entries))
	for id, entry := range entries {
		if mean, ok := entry.Mean(); ok {
			res[id] = mean
		}
	}

	return res
}

// AggregateFile streams the file at path through svc.
func AggregateFile(ctx context.Context, svc Service, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sensor file: %w", err)
	}
	defer f.Close()

	return svc.Aggregate(ctx, f)
}
