package inference

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

var errModelClosed = errors.New("model is closed")

// Classifier scores a preprocessed tensor, one score per class.
type Classifier interface {
	Classify(ctx context.Context, t *Tensor) ([]float32, error)
}

// Loader builds a Classifier. It may be slow and is called until it succeeds.
type Loader func(ctx context.Context) (Classifier, error)

type ModelOption func(*Model)

// Concurrent marks the loaded classifier as safe for parallel Classify calls.
func Concurrent() ModelOption {
	return func(m *Model) {
		m.concurrent = true
	}
}

// Model is the process wide classifier handle. It is loaded on first use and
// reused afterwards; failed loads are not cached.
type Model struct {
	loader     Loader
	concurrent bool
	logger     *slog.Logger

	// loading is held by the caller running the loader.
	loading chan struct{}

	mu     sync.Mutex
	raw    Classifier
	clf    Classifier
	closed bool
}

func NewModel(loader Loader, logger *slog.Logger, opts ...ModelOption) *Model {
	m := &Model{
		loader:  loader,
		logger:  logger,
		loading: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Load returns the cached classifier or runs the loader. Callers waiting on
// another caller's load give up when their context ends.
func (m *Model) Load(ctx context.Context) (Classifier, error) {
	if clf, err := m.cached(); clf != nil || err != nil {
		return clf, err
	}

	select {
	case m.loading <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-m.loading }()

	if clf, err := m.cached(); clf != nil || err != nil {
		return clf, err
	}

	begin := time.Now()
	raw, err := m.loader(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		if c, ok := raw.(io.Closer); ok {
			_ = c.Close()
		}

		return nil, errModelClosed
	}
	m.raw = raw
	m.clf = raw
	if !m.concurrent {
		m.clf = Serialize(raw)
	}
	m.logger.Info("Model loaded", slog.String("duration", time.Since(begin).String()))

	return m.clf, nil
}

// cached returns nil, nil while no classifier is loaded.
func (m *Model) cached() (Classifier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errModelClosed
	}

	return m.clf, nil
}

// Loaded reports whether a classifier is cached.
func (m *Model) Loaded() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.clf != nil
}

// Close releases the classifier if it holds native resources.
func (m *Model) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	raw := m.raw
	m.raw, m.clf = nil, nil
	if c, ok := raw.(io.Closer); ok {
		return c.Close()
	}

	return nil
}

// Serialize admits one Classify call at a time into c. Waiting callers give up
// when their context ends.
func Serialize(c Classifier) Classifier {
	return &serialized{
		gate: make(chan struct{}, 1),
		clf:  c,
	}
}

type serialized struct {
	gate chan struct{}
	clf  Classifier
}

func (s *serialized) Classify(ctx context.Context, t *Tensor) ([]float32, error) {
	select {
	case s.gate <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.gate }()

	return s.clf.Classify(ctx, t)
}

// ClassifierFunc adapts a plain function to Classifier.
type ClassifierFunc func(ctx context.Context, t *Tensor) ([]float32, error)

func (f ClassifierFunc) Classify(ctx context.Context, t *Tensor) ([]float32, error) {
	return f(ctx, t)
}
