// Package onnx runs the traffic classifier on ONNX Runtime.
package onnx

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/absmach/roadlens/inference"
	ort "github.com/yalue/onnxruntime_go"
)

var (
	errModelPath = errors.New("model path is required")
	errInputSize = errors.New("input tensor size mismatch")
	errNoClasses = errors.New("class count must be positive")
	errDestroyed = errors.New("onnx session destroyed")
)

var (
	envMu          sync.Mutex
	envInitialized bool
)

type Config struct {
	LibraryPath string
	ModelPath   string
	InputName   string
	OutputName  string
	InputShape  []int64
	Classes     int
	Threads     int
	// Softmax normalizes raw logits into probabilities.
	Softmax bool
}

var _ inference.Classifier = (*Classifier)(nil)

// Classifier owns one ONNX session bound to fixed input and output tensors.
// It is not safe for concurrent use.
type Classifier struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	softmax bool
}

// NewLoader returns a loader that creates the session on first use.
func NewLoader(cfg Config) inference.Loader {
	return func(context.Context) (inference.Classifier, error) {
		clf, err := New(cfg)
		if err != nil {
			return nil, err
		}

		return clf, nil
	}
}

func New(cfg Config) (*Classifier, error) {
	if cfg.ModelPath == "" {
		return nil, errModelPath
	}
	if cfg.Classes <= 0 {
		return nil, errNoClasses
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}
	if err := initEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer options.Destroy()
	if cfg.Threads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.Threads); err != nil {
			return nil, fmt.Errorf("set threads: %w", err)
		}
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(cfg.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(cfg.Classes)))
	if err != nil {
		_ = input.Destroy()

		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		options,
	)
	if err != nil {
		_ = input.Destroy()
		_ = output.Destroy()

		return nil, fmt.Errorf("create session: %w", err)
	}

	return &Classifier{
		session: session,
		input:   input,
		output:  output,
		softmax: cfg.Softmax,
	}, nil
}

func (c *Classifier) Classify(ctx context.Context, t *inference.Tensor) ([]float32, error) {
	if c.session == nil {
		return nil, errDestroyed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dst := c.input.GetData()
	if len(dst) != len(t.Data) {
		return nil, fmt.Errorf("%w: model wants %d values, got %d", errInputSize, len(dst), len(t.Data))
	}
	copy(dst, t.Data)

	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("run session: %w", err)
	}

	scores := append([]float32(nil), c.output.GetData()...)
	if c.softmax {
		Softmax(scores)
	}

	return scores, nil
}

// Close destroys the session and its tensors.
func (c *Classifier) Close() error {
	if c.session == nil {
		return nil
	}
	err := errors.Join(c.session.Destroy(), c.input.Destroy(), c.output.Destroy())
	c.session, c.input, c.output = nil, nil, nil

	return err
}

// Softmax normalizes scores in place.
func Softmax(scores []float32) {
	if len(scores) == 0 {
		return
	}
	maxScore := scores[0]
	for _, s := range scores[1:] {
		maxScore = max(maxScore, s)
	}
	var sum float64
	for i, s := range scores {
		e := math.Exp(float64(s - maxScore))
		scores[i] = float32(e)
		sum += e
	}
	for i := range scores {
		scores[i] = float32(float64(scores[i]) / sum)
	}
}

func initEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if envInitialized {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	envInitialized = true

	return nil
}

// Shutdown tears down the ONNX Runtime environment once all sessions are closed.
func Shutdown() error {
	envMu.Lock()
	defer envMu.Unlock()

	if !envInitialized {
		return nil
	}
	envInitialized = false

	return ort.DestroyEnvironment()
}
