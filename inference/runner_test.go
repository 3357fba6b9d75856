package inference_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/absmach/roadlens/inference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFunc func(ctx context.Context, req inference.Request) ([]inference.Detection, error)

func (f serviceFunc) Infer(ctx context.Context, req inference.Request) ([]inference.Detection, error) {
	return f(ctx, req)
}

func TestRunnerSpawn(t *testing.T) {
	t.Parallel()

	want := []inference.Detection{{Label: "car", Confidence: 0.9}}
	runner := inference.NewRunner(serviceFunc(func(context.Context, inference.Request) ([]inference.Detection, error) {
		return want, nil
	}), 2, discard)

	ch := runner.Spawn(context.Background(), inference.Request{ImageLocator: "http://x"})
	resp, ok := <-ch
	require.True(t, ok)
	require.NoError(t, resp.Err)
	assert.Equal(t, want, resp.Objects)

	_, ok = <-ch
	assert.False(t, ok, "a task reports exactly once")
	runner.Wait()
}

func TestRunnerContainsPanics(t *testing.T) {
	t.Parallel()

	var calls int
	runner := inference.NewRunner(serviceFunc(func(context.Context, inference.Request) ([]inference.Detection, error) {
		calls++
		if calls == 1 {
			panic("unexpected")
		}

		return nil, nil
	}), 1, discard)

	resp := runner.Run(context.Background(), inference.Request{ImageLocator: "http://x"})
	assert.ErrorIs(t, resp.Err, inference.ErrInternal)
	assert.Equal(t, inference.KindInternal, inference.KindOf(resp.Err))

	resp = runner.Run(context.Background(), inference.Request{ImageLocator: "http://x"})
	assert.NoError(t, resp.Err)
}

func TestRunnerLimitsConcurrency(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	runner := inference.NewRunner(serviceFunc(func(context.Context, inference.Request) ([]inference.Detection, error) {
		started <- struct{}{}
		<-release

		return nil, nil
	}), 1, discard)

	first := runner.Spawn(context.Background(), inference.Request{ImageLocator: "http://a"})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	resp := runner.Run(ctx, inference.Request{ImageLocator: "http://b"})
	assert.ErrorIs(t, resp.Err, inference.ErrCanceled)
	assert.ErrorIs(t, resp.Err, context.DeadlineExceeded)

	close(release)
	assert.NoError(t, (<-first).Err)
	runner.Wait()
}

func TestResponseJSON(t *testing.T) {
	t.Parallel()

	cases := []struct {
		desc string
		resp inference.Response
		want string
	}{
		{
			desc: "detections",
			resp: inference.Response{Objects: []inference.Detection{{Label: "car", Confidence: 0.5}}},
			want: `{"objects":[{"label":"car","confidence":0.5}]}`,
		},
		{
			desc: "no detections",
			resp: inference.Response{},
			want: `{"objects":[]}`,
		},
		{
			desc: "typed failure",
			resp: inference.Response{Err: &inference.Error{Kind: inference.KindImageFetch, Err: errors.New("timeout")}},
			want: `{"error":"image fetch failed: timeout","kind":"image_fetch"}`,
		},
		{
			desc: "foreign failure",
			resp: inference.Response{Err: errors.New("boom")},
			want: `{"error":"boom","kind":"internal"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			t.Parallel()

			data, err := json.Marshal(tc.resp)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(data))
		})
	}
}

func TestRequestValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, inference.Request{ImageLocator: "http://x", Threshold: 0}.Validate())
	assert.NoError(t, inference.Request{ImageLocator: "http://x", Threshold: 1}.Validate())
	assert.Error(t, inference.Request{ImageLocator: "http://x", Threshold: -0.1}.Validate())
	assert.Error(t, inference.Request{ImageLocator: ""}.Validate())
}

func TestFilterLabelsBeyondVocabulary(t *testing.T) {
	t.Parallel()

	got := inference.Filter([]float32{0.1, 0.6, 0.7, 0.8}, inference.DefaultLabels, 0.5)
	assert.Equal(t, []inference.Detection{
		{Label: "pedestrian", Confidence: float64(float32(0.6))},
		{Label: "traffic light", Confidence: float64(float32(0.7))},
		{Label: "class_3", Confidence: float64(float32(0.8))},
	}, got)
}
