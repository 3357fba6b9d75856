// Package mqtt serves inference requests and annotation saves received over
// MQTT. Each inference outcome is published once on the results topic named
// after the request id.
package mqtt

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/absmach/roadlens/annotation"
	"github.com/absmach/roadlens/inference"
	pkgmqtt "github.com/absmach/roadlens/pkg/mqtt"
)

const (
	requestsTopic         = "inference/requests"
	resultsTopic          = "inference/results"
	annotationsTopic      = "annotations"
	annotationsSavedTopic = "annotations/saved"
)

var (
	errEmptyRequestID = errors.New("empty request id")
	errInvalidID      = errors.New("request id must not contain topic separators or wildcards")
)

type inferenceReq struct {
	ID string `json:"id"`
	inference.Request
}

func (req inferenceReq) validate() error {
	if req.ID == "" {
		return errEmptyRequestID
	}
	if strings.ContainsAny(req.ID, "/+#") {
		return errInvalidID
	}

	return nil
}

type Handler struct {
	prefix      string
	pubsub      pkgmqtt.PubSub
	runner      *inference.Runner
	annotations annotation.Service
	logger      *slog.Logger
	wg          sync.WaitGroup
}

func NewHandler(prefix string, pubsub pkgmqtt.PubSub, runner *inference.Runner, annotations annotation.Service, logger *slog.Logger) *Handler {
	return &Handler{
		prefix:      strings.TrimSuffix(prefix, "/"),
		pubsub:      pubsub,
		runner:      runner,
		annotations: annotations,
		logger:      logger,
	}
}

// Subscribe registers the request and annotation handlers.
func (h *Handler) Subscribe(ctx context.Context) error {
	if err := h.pubsub.Subscribe(ctx, h.topic(requestsTopic), h.handleInference); err != nil {
		return err
	}

	return h.pubsub.Subscribe(ctx, h.topic(annotationsTopic), h.handleAnnotation)
}

// Unsubscribe stops intake and waits for in-flight results to be published.
func (h *Handler) Unsubscribe(ctx context.Context) error {
	err := errors.Join(
		h.pubsub.Unsubscribe(ctx, h.topic(requestsTopic)),
		h.pubsub.Unsubscribe(ctx, h.topic(annotationsTopic)),
	)
	h.wg.Wait()

	return err
}

// ResultTopic is where the outcome of request id is published.
func (h *Handler) ResultTopic(id string) string {
	return h.topic(resultsTopic + "/" + id)
}

func (h *Handler) topic(name string) string {
	if h.prefix == "" {
		return name
	}

	return h.prefix + "/" + name
}

// handleInference returns once the task is spawned so the client's delivery
// goroutine is not held for the length of an inference.
func (h *Handler) handleInference(ctx context.Context, msg pkgmqtt.Message) error {
	var req inferenceReq
	if err := msg.Decode(&req); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	out := h.runner.Spawn(ctx, req.Request)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		res := <-out
		topic := h.ResultTopic(req.ID)
		if err := h.pubsub.Publish(ctx, topic, res.Body()); err != nil {
			h.logger.Warn("Failed to publish inference result",
				slog.String("id", req.ID),
				slog.String("topic", topic),
				slog.String("error", err.Error()),
			)
		}
	}()

	return nil
}

func (h *Handler) handleAnnotation(ctx context.Context, msg pkgmqtt.Message) error {
	var data map[string]any
	if err := msg.Decode(&data); err != nil {
		return err
	}

	a, err := h.annotations.Save(ctx, data)
	if err != nil {
		return err
	}

	return h.pubsub.Publish(ctx, h.topic(annotationsSavedTopic), a)
}
