// Package ws dispatches socket events to the inference runner, the remote
// detector and the annotation service. Text frames carry JSON envelopes and
// binary frames carry CBOR; a reply uses the frame type of its request.
package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/absmach/roadlens/annotation"
	"github.com/absmach/roadlens/inference"
	"github.com/absmach/roadlens/inference/remote"
	"github.com/absmach/roadlens/pkg/codec"
	"github.com/gorilla/websocket"
)

const (
	EventInference      = "inference"
	EventSuggestion     = "aiSuggestion"
	EventAnnotationSave = "annotationSave"
	EventError          = "error"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 32 << 20
	sendBuffer     = 16
)

var (
	errUnknownEvent     = errors.New("unknown event")
	errMalformedMessage = errors.New("malformed message")
)

// Suggester proposes labelled boxes for a base64 or data URI image.
type Suggester interface {
	Suggest(ctx context.Context, image string) ([]remote.Suggestion, error)
}

// Envelope is the frame body in both directions.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type suggestionReq struct {
	Image string `json:"image"`
}

type errorBody struct {
	Error string `json:"error"`
}

type Handler struct {
	runner      *inference.Runner
	suggester   Suggester
	annotations annotation.Service
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

var _ http.Handler = (*Handler)(nil)

type Option func(*Handler)

// WithAllowedOrigins accepts browser upgrades only from the listed origins;
// "*" accepts any. Requests without an Origin header are always accepted.
// Without this option the origin must match the request host.
func WithAllowedOrigins(origins ...string) Option {
	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSuffix(strings.TrimSpace(o), "/"); o != "" {
			allowed = append(allowed, o)
		}
	}

	return func(h *Handler) {
		if len(allowed) == 0 {
			return
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, o := range allowed {
				if o == "*" || strings.EqualFold(o, origin) {
					return true
				}
			}

			return false
		}
	}
}

// NewHandler returns the socket endpoint. A nil suggester answers every
// aiSuggestion event with no suggestions.
func NewHandler(runner *inference.Runner, suggester Suggester, annotations annotation.Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		runner:      runner,
		suggester:   suggester,
		annotations: annotations,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(h)
	}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", slog.String("error", err.Error()))

		return
	}

	c := &client{
		conn:    conn,
		handler: h,
		send:    make(chan frame, sendBuffer),
		logger:  h.logger.With(slog.String("remote", r.RemoteAddr)),
	}
	c.logger.Info("Client connected")
	c.run(context.WithoutCancel(r.Context()))
	c.logger.Info("Client disconnected")
}

type frame struct {
	msgType int
	data    []byte
}

type client struct {
	conn    *websocket.Conn
	handler *Handler
	send    chan frame
	logger  *slog.Logger
}

func (c *client) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writePump(ctx)
	}()

	var wg sync.WaitGroup
	c.readPump(ctx, &wg)

	cancel()
	wg.Wait()
	close(c.send)
	<-writerDone
	_ = c.conn.Close()
}

func (c *client) readPump(ctx context.Context, wg *sync.WaitGroup) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("Client read failed", slog.String("error", err.Error()))
			}

			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		cd := codec.JSON
		if msgType == websocket.BinaryMessage {
			cd = codec.CBOR
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			c.reply(ctx, msgType, cd, c.dispatch(ctx, cd, data))
		}()
	}
}

func (c *client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case f, ok := <-c.send:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(f.msgType, f.data); err != nil {
				c.logger.Warn("Client write failed", slog.String("error", err.Error()))
				c.drain()

				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.drain()

				return
			}
		case <-ctx.Done():
			c.drain()

			return
		}
	}
}

// drain discards queued replies until the channel is closed so no handler
// blocks on a dead connection.
func (c *client) drain() {
	for range c.send {
	}
}

func (c *client) reply(ctx context.Context, msgType int, cd codec.Codec, env Envelope) {
	data, err := cd.Marshal(env)
	if err != nil {
		c.logger.Error("Failed to encode reply", slog.String("event", env.Event), slog.String("error", err.Error()))

		return
	}

	select {
	case c.send <- frame{msgType: msgType, data: data}:
	case <-ctx.Done():
	}
}

func (c *client) dispatch(ctx context.Context, cd codec.Codec, data []byte) Envelope {
	var env Envelope
	if err := cd.Unmarshal(data, &env); err != nil {
		return errorEnvelope(fmt.Errorf("%w: %w", errMalformedMessage, err))
	}

	switch env.Event {
	case EventInference:
		var req inference.Request
		if err := decodeData(cd, env.Data, &req); err != nil {
			return Envelope{Event: env.Event, Data: inference.Response{Err: &inference.Error{Kind: inference.KindInvalidRequest, Err: err}}.Body()}
		}
		res := c.handler.runner.Run(ctx, req)

		return Envelope{Event: env.Event, Data: res.Body()}
	case EventSuggestion:
		return Envelope{Event: env.Event, Data: c.suggest(ctx, cd, env.Data)}
	case EventAnnotationSave:
		var payload map[string]any
		if err := decodeData(cd, env.Data, &payload); err != nil {
			return Envelope{Event: env.Event, Data: errorBody{Error: err.Error()}}
		}
		a, err := c.handler.annotations.Save(ctx, payload)
		if err != nil {
			return Envelope{Event: env.Event, Data: errorBody{Error: err.Error()}}
		}

		return Envelope{Event: env.Event, Data: a}
	default:
		return errorEnvelope(fmt.Errorf("%w: %q", errUnknownEvent, env.Event))
	}
}

// suggest never fails: any error yields an empty list.
func (c *client) suggest(ctx context.Context, cd codec.Codec, data any) []remote.Suggestion {
	none := []remote.Suggestion{}
	if c.handler.suggester == nil {
		return none
	}

	var req suggestionReq
	if err := decodeData(cd, data, &req); err != nil || req.Image == "" {
		c.logger.Warn("Rejected suggestion request", slog.Any("error", err))

		return none
	}

	suggestions, err := c.handler.suggester.Suggest(ctx, req.Image)
	if err != nil {
		c.logger.Warn("Suggestion failed", slog.String("error", err.Error()))

		return none
	}
	if suggestions == nil {
		return none
	}

	return suggestions
}

func decodeData(cd codec.Codec, data, v any) error {
	if data == nil {
		return errMalformedMessage
	}

	raw, err := cd.Marshal(data)
	if err != nil {
		return err
	}

	return cd.Unmarshal(raw, v)
}

func errorEnvelope(err error) Envelope {
	return Envelope{Event: EventError, Data: errorBody{Error: err.Error()}}
}
