// Package prometheus builds go-kit metrics backed by prometheus collectors.
package prometheus

import (
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
)

// DurationBuckets bound the inference duration histogram, in seconds.
var DurationBuckets = []float64{0.1, 0.5, 1, 2, 5}

// MakeMetrics returns a request counter and a request latency histogram, both
// labelled by method, registered on reg.
func MakeMetrics(reg prometheus.Registerer, namespace, subsystem string) (*kitprometheus.Counter, *kitprometheus.Histogram) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_count",
		Help:      "Number of requests received.",
	}, []string{"method"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_latency_seconds",
		Help:      "Total duration of requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})
	reg.MustRegister(counter, latency)

	return kitprometheus.NewCounter(counter), kitprometheus.NewHistogram(latency)
}

// MakeWorkerMetrics returns the prediction duration histogram and the
// prediction error counter, labelled by error kind, registered on reg.
func MakeWorkerMetrics(reg prometheus.Registerer, namespace, subsystem string) (*kitprometheus.Histogram, *kitprometheus.Counter) {
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "duration_seconds",
		Help:      "Duration of prediction in worker in seconds",
		Buckets:   DurationBuckets,
	}, nil)
	errors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "errors_total",
		Help:      "Total number of prediction errors in worker",
	}, []string{"kind"})
	reg.MustRegister(duration, errors)

	return kitprometheus.NewHistogram(duration), kitprometheus.NewCounter(errors)
}
