package ws_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/absmach/roadlens/annotation"
	"github.com/absmach/roadlens/api/ws"
	"github.com/absmach/roadlens/inference"
	"github.com/absmach/roadlens/inference/remote"
	"github.com/absmach/roadlens/pkg/codec"
	"github.com/absmach/roadlens/pkg/storage"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inferFunc func(ctx context.Context, req inference.Request) ([]inference.Detection, error)

func (f inferFunc) Infer(ctx context.Context, req inference.Request) ([]inference.Detection, error) {
	return f(ctx, req)
}

type suggestFunc func(ctx context.Context, image string) ([]remote.Suggestion, error)

func (f suggestFunc) Suggest(ctx context.Context, image string) ([]remote.Suggestion, error) {
	return f(ctx, image)
}

func infer(_ context.Context, req inference.Request) ([]inference.Detection, error) {
	if err := req.Validate(); err != nil {
		return nil, &inference.Error{Kind: inference.KindInvalidRequest, Err: err}
	}
	if req.ImageLocator == "http://images/missing.png" {
		return nil, &inference.Error{Kind: inference.KindImageFetch, Locator: req.ImageLocator, Err: errors.New("404")}
	}

	return []inference.Detection{{Label: "pedestrian", Confidence: 0.75}}, nil
}

func dial(t *testing.T, suggester ws.Suggester) *websocket.Conn {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	runner := inference.NewRunner(inferFunc(infer), 2, logger)
	annotations := annotation.NewService(storage.NewInMemoryRepository(), logger)

	ts := httptest.NewServer(ws.NewHandler(runner, suggester, annotations, logger))
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, cd codec.Codec, env ws.Envelope) map[string]any {
	t.Helper()

	msgType := websocket.TextMessage
	if cd.Name() == codec.CBORName {
		msgType = websocket.BinaryMessage
	}

	data, err := cd.Marshal(env)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(msgType, data))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	gotType, reply, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, msgType, gotType)

	var got map[string]any
	require.NoError(t, cd.Unmarshal(reply, &got))

	return got
}

func TestInferenceEvent(t *testing.T) {
	for _, cd := range []codec.Codec{codec.JSON, codec.CBOR} {
		t.Run(cd.Name(), func(t *testing.T) {
			conn := dial(t, nil)

			got := roundTrip(t, conn, cd, ws.Envelope{
				Event: ws.EventInference,
				Data:  map[string]any{"imageLocator": "http://images/people.png", "threshold": 0.5},
			})
			assert.Equal(t, ws.EventInference, got["event"])
			data, ok := got["data"].(map[string]any)
			require.True(t, ok)
			objects, ok := data["objects"].([]any)
			require.True(t, ok)
			require.Len(t, objects, 1)
			assert.Equal(t, "pedestrian", objects[0].(map[string]any)["label"])

			got = roundTrip(t, conn, cd, ws.Envelope{
				Event: ws.EventInference,
				Data:  map[string]any{"imageLocator": "http://images/missing.png", "threshold": 0.5},
			})
			data, ok = got["data"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "image_fetch", data["kind"])
			assert.NotContains(t, data, "objects")

			got = roundTrip(t, conn, cd, ws.Envelope{Event: ws.EventInference})
			data, ok = got["data"].(map[string]any)
			require.True(t, ok)
			assert.Equal(t, "invalid_request", data["kind"])
		})
	}
}

func TestSuggestionEvent(t *testing.T) {
	cases := []struct {
		desc      string
		suggester ws.Suggester
		data      any
		want      int
	}{
		{
			desc: "suggestions",
			suggester: suggestFunc(func(_ context.Context, image string) ([]remote.Suggestion, error) {
				if image != "data:image/png;base64,AAAA" {
					return nil, errors.New("unexpected image")
				}

				return []remote.Suggestion{{ID: 1, Label: "car", Confidence: 0.8, Width: 10, Height: 5}}, nil
			}),
			data: map[string]any{"image": "data:image/png;base64,AAAA"},
			want: 1,
		},
		{
			desc: "detector failure yields empty list",
			suggester: suggestFunc(func(context.Context, string) ([]remote.Suggestion, error) {
				return nil, errors.New("upstream down")
			}),
			data: map[string]any{"image": "data:image/png;base64,AAAA"},
		},
		{
			desc: "missing image yields empty list",
			suggester: suggestFunc(func(context.Context, string) ([]remote.Suggestion, error) {
				return nil, errors.New("not called")
			}),
			data: map[string]any{},
		},
		{
			desc: "no detector yields empty list",
			data: map[string]any{"image": "data:image/png;base64,AAAA"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			conn := dial(t, tc.suggester)

			got := roundTrip(t, conn, codec.CBOR, ws.Envelope{Event: ws.EventSuggestion, Data: tc.data})
			assert.Equal(t, ws.EventSuggestion, got["event"])
			suggestions, ok := got["data"].([]any)
			require.True(t, ok)
			assert.Len(t, suggestions, tc.want)
		})
	}
}

func TestAnnotationSaveEvent(t *testing.T) {
	conn := dial(t, nil)

	got := roundTrip(t, conn, codec.JSON, ws.Envelope{
		Event: ws.EventAnnotationSave,
		Data:  map[string]any{"label": "car", "x": 1.0},
	})
	assert.Equal(t, ws.EventAnnotationSave, got["event"])
	data, ok := got["data"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data["id"])
	assert.Equal(t, map[string]any{"label": "car", "x": 1.0}, data["data"])

	got = roundTrip(t, conn, codec.JSON, ws.Envelope{Event: ws.EventAnnotationSave, Data: map[string]any{}})
	data, ok = got["data"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, data["error"], "malformed entity")
}

func TestUnknownAndMalformedMessages(t *testing.T) {
	conn := dial(t, nil)

	got := roundTrip(t, conn, codec.JSON, ws.Envelope{Event: "resize"})
	assert.Equal(t, ws.EventError, got["event"])
	assert.Contains(t, got["data"].(map[string]any)["error"], "unknown event")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"event":`)))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, reply, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(reply), "malformed message")
}

func TestOriginCheck(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.DiscardHandler)
	runner := inference.NewRunner(inferFunc(infer), 1, logger)
	annotations := annotation.NewService(storage.NewInMemoryRepository(), logger)

	cases := []struct {
		desc    string
		allowed []string
		origin  string
		ok      bool
	}{
		{desc: "listed origin", allowed: []string{"http://localhost:3000/"}, origin: "http://localhost:3000", ok: true},
		{desc: "unlisted origin", allowed: []string{"http://localhost:3000"}, origin: "http://evil.example", ok: false},
		{desc: "no origin header", allowed: []string{"http://localhost:3000"}, ok: true},
		{desc: "wildcard", allowed: []string{"*"}, origin: "http://evil.example", ok: true},
		{desc: "same host by default", origin: "http://{host}", ok: true},
		{desc: "cross host by default", origin: "http://evil.example", ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			ts := httptest.NewServer(ws.NewHandler(runner, nil, annotations, logger, ws.WithAllowedOrigins(tc.allowed...)))
			t.Cleanup(ts.Close)

			header := http.Header{}
			if tc.origin != "" {
				header.Set("Origin", strings.ReplaceAll(tc.origin, "{host}", strings.TrimPrefix(ts.URL, "http://")))
			}
			conn, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), header)
			if resp != nil && resp.Body != nil {
				_ = resp.Body.Close()
			}
			if !tc.ok {
				require.ErrorIs(t, err, websocket.ErrBadHandshake)
				assert.Equal(t, http.StatusForbidden, resp.StatusCode)

				return
			}
			require.NoError(t, err)
			_ = conn.Close()
		})
	}
}
