package mqtt_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/absmach/roadlens/annotation"
	apimqtt "github.com/absmach/roadlens/api/mqtt"
	"github.com/absmach/roadlens/inference"
	"github.com/absmach/roadlens/pkg/codec"
	pkgmqtt "github.com/absmach/roadlens/pkg/mqtt"
	"github.com/absmach/roadlens/pkg/mqtt/mocks"
	"github.com/absmach/roadlens/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const prefix = "roadlens"

type inferFunc func(ctx context.Context, req inference.Request) ([]inference.Detection, error)

func (f inferFunc) Infer(ctx context.Context, req inference.Request) ([]inference.Detection, error) {
	return f(ctx, req)
}

type published struct {
	topic string
	msg   any
}

func setup(t *testing.T) (*apimqtt.Handler, *mocks.MockPubSub, map[string]pkgmqtt.Handler, chan published) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	runner := inference.NewRunner(inferFunc(func(_ context.Context, req inference.Request) ([]inference.Detection, error) {
		if err := req.Validate(); err != nil {
			return nil, &inference.Error{Kind: inference.KindInvalidRequest, Locator: req.ImageLocator, Err: err}
		}
		if req.ImageLocator == "http://images/missing.png" {
			return nil, &inference.Error{Kind: inference.KindImageFetch, Locator: req.ImageLocator, Err: errors.New("404")}
		}

		return []inference.Detection{{Label: "traffic light", Confidence: 0.6}}, nil
	}), 2, logger)
	annotations := annotation.NewService(storage.NewInMemoryRepository(), logger)

	ps := new(mocks.MockPubSub)
	handlers := make(map[string]pkgmqtt.Handler)
	ps.On("Subscribe", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			handlers[args.String(1)] = args.Get(2).(pkgmqtt.Handler)
		}).
		Return(nil)

	out := make(chan published, 4)
	ps.On("Publish", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Run(func(args mock.Arguments) {
			out <- published{topic: args.String(1), msg: args.Get(2)}
		}).
		Return(nil)
	ps.On("Unsubscribe", mock.Anything, mock.AnythingOfType("string")).Return(nil)

	h := apimqtt.NewHandler(prefix+"/", ps, runner, annotations, logger)
	require.NoError(t, h.Subscribe(context.Background()))

	return h, ps, handlers, out
}

func receive(t *testing.T, out chan published) published {
	t.Helper()

	select {
	case p := <-out:
		return p
	case <-time.After(5 * time.Second):
		t.Fatal("nothing published")

		return published{}
	}
}

func TestSubscribeTopics(t *testing.T) {
	_, ps, handlers, _ := setup(t)

	assert.Contains(t, handlers, "roadlens/inference/requests")
	assert.Contains(t, handlers, "roadlens/annotations")
	ps.AssertNumberOfCalls(t, "Subscribe", 2)
}

func TestInferenceRequests(t *testing.T) {
	cases := []struct {
		desc    string
		payload string
		topic   string
		want    string
		kind    string
	}{
		{
			desc:    "detections",
			payload: `{"id":"req-1","imageLocator":"http://images/lights.png","threshold":0.5}`,
			topic:   "roadlens/inference/results/req-1",
			want:    `{"objects":[{"label":"traffic light","confidence":0.6}]}`,
		},
		{
			desc:    "fetch failure",
			payload: `{"id":"req-2","imageLocator":"http://images/missing.png","threshold":0.5}`,
			topic:   "roadlens/inference/results/req-2",
			want:    `{"error":"image fetch failed: 404","kind":"image_fetch"}`,
		},
		{
			desc:    "invalid threshold",
			payload: `{"id":"req-3","imageLocator":"http://images/lights.png","threshold":2}`,
			topic:   "roadlens/inference/results/req-3",
			kind:    `"kind":"invalid_request"`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			h, _, handlers, out := setup(t)

			msg := pkgmqtt.NewMessage("roadlens/inference/requests", []byte(tc.payload), codec.JSON)
			require.NoError(t, handlers["roadlens/inference/requests"](context.Background(), msg))

			p := receive(t, out)
			assert.Equal(t, tc.topic, p.topic)
			data, err := codec.JSON.Marshal(p.msg)
			require.NoError(t, err)
			if tc.want != "" {
				assert.JSONEq(t, tc.want, string(data))
			}
			if tc.kind != "" {
				assert.Contains(t, string(data), tc.kind)
			}
			require.NoError(t, h.Unsubscribe(context.Background()))
		})
	}
}

func TestInferenceRequestRejected(t *testing.T) {
	cases := []struct {
		desc    string
		payload string
	}{
		{desc: "missing id", payload: `{"imageLocator":"http://images/lights.png","threshold":0.5}`},
		{desc: "wildcard id", payload: `{"id":"a/#","imageLocator":"http://images/lights.png","threshold":0.5}`},
		{desc: "malformed payload", payload: `{"id":`},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, ps, handlers, _ := setup(t)

			msg := pkgmqtt.NewMessage("roadlens/inference/requests", []byte(tc.payload), codec.JSON)
			assert.Error(t, handlers["roadlens/inference/requests"](context.Background(), msg))
			ps.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAnnotationSave(t *testing.T) {
	_, _, handlers, out := setup(t)

	payload, err := codec.CBOR.Marshal(map[string]any{"label": "car"})
	require.NoError(t, err)

	msg := pkgmqtt.NewMessage("roadlens/annotations", payload, codec.CBOR)
	require.NoError(t, handlers["roadlens/annotations"](context.Background(), msg))

	p := receive(t, out)
	assert.Equal(t, "roadlens/annotations/saved", p.topic)
	a, ok := p.msg.(annotation.Annotation)
	require.True(t, ok)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "car", a.Data["label"])

	empty := pkgmqtt.NewMessage("roadlens/annotations", []byte(`{}`), codec.JSON)
	assert.Error(t, handlers["roadlens/annotations"](context.Background(), empty))
}

func TestResultTopic(t *testing.T) {
	h := apimqtt.NewHandler("", new(mocks.MockPubSub), nil, nil, slog.New(slog.DiscardHandler))
	assert.Equal(t, "inference/results/abc", h.ResultTopic("abc"))
}
