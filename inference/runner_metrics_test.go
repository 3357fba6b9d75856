package inference_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/absmach/roadlens/inference"
	roadprom "github.com/absmach/roadlens/pkg/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func family(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}

	return nil
}

func histogramCount(t *testing.T, reg *prometheus.Registry) uint64 {
	t.Helper()

	mf := family(t, reg, "worker_prediction_duration_seconds")
	if mf == nil {
		return 0
	}

	return mf.GetMetric()[0].GetHistogram().GetSampleCount()
}

func errorCount(t *testing.T, reg *prometheus.Registry, kind string) float64 {
	t.Helper()

	mf := family(t, reg, "worker_prediction_errors_total")
	if mf == nil {
		return 0
	}
	for _, m := range mf.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "kind" && l.GetValue() == kind {
				return m.GetCounter().GetValue()
			}
		}
	}

	return 0
}

func newMeteredRunner(svc inference.Service) (*inference.Runner, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	duration, counter := roadprom.MakeWorkerMetrics(reg, "worker", "prediction")

	return inference.NewRunner(svc, 1, discard, inference.WithMetrics(duration, counter)), reg
}

func TestRunnerMetricsCanceledBeforeStart(t *testing.T) {
	t.Parallel()

	var calls int
	runner, reg := newMeteredRunner(serviceFunc(func(context.Context, inference.Request) ([]inference.Detection, error) {
		calls++

		return nil, nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp := runner.Run(ctx, inference.Request{ImageLocator: "http://x"})
	require.ErrorIs(t, resp.Err, inference.ErrCanceled)
	runner.Wait()

	assert.Zero(t, calls)
	assert.Equal(t, uint64(1), histogramCount(t, reg))
	assert.Equal(t, 1.0, errorCount(t, reg, "canceled"))
}

func TestRunnerMetricsPanic(t *testing.T) {
	t.Parallel()

	runner, reg := newMeteredRunner(serviceFunc(func(context.Context, inference.Request) ([]inference.Detection, error) {
		panic("nil model")
	}))

	resp := runner.Run(context.Background(), inference.Request{ImageLocator: "http://x"})
	require.ErrorIs(t, resp.Err, inference.ErrInternal)
	runner.Wait()

	assert.Equal(t, uint64(1), histogramCount(t, reg))
	assert.Equal(t, 1.0, errorCount(t, reg, "internal"))
}

func TestRunnerMetricsFetchTimeout(t *testing.T) {
	t.Parallel()

	slow := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(slow.Close)

	model := inference.NewModel(staticLoader(fixedScores(1)), discard)
	worker := inference.NewWorker(
		model,
		inference.NewHTTPFetcher(inference.WithFetchTimeout(50*time.Millisecond)),
		inference.NewPreprocessor(0, 0),
		nil,
		discard,
	)
	runner, reg := newMeteredRunner(worker)

	resp := runner.Run(context.Background(), inference.Request{ImageLocator: slow.URL})
	require.ErrorIs(t, resp.Err, inference.ErrImageFetch)
	runner.Wait()

	assert.Equal(t, 1.0, errorCount(t, reg, "image_fetch"))
	assert.Equal(t, uint64(1), histogramCount(t, reg))
}

func TestRunnerMetricsCountsOnlyFailures(t *testing.T) {
	t.Parallel()

	fail := true
	runner, reg := newMeteredRunner(serviceFunc(func(context.Context, inference.Request) ([]inference.Detection, error) {
		if fail {
			return nil, &inference.Error{Kind: inference.KindClassify, Err: errors.New("bad output")}
		}

		return []inference.Detection{}, nil
	}))

	require.Error(t, runner.Run(context.Background(), inference.Request{}).Err)
	fail = false
	for range 3 {
		require.NoError(t, runner.Run(context.Background(), inference.Request{}).Err)
	}
	runner.Wait()

	assert.Equal(t, 1.0, errorCount(t, reg, "classify"))
	assert.Equal(t, uint64(4), histogramCount(t, reg))
}
