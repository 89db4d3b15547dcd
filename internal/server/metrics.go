package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics lives on its own registry so several servers can coexist in
// one process.
type metrics struct {
	registry *prometheus.Registry

	requests         *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	predictions      *prometheus.CounterVec
	predictionErrors *prometheus.CounterVec
	churnProbability prometheus.Histogram
	reloads          *prometheus.CounterVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &metrics{
		registry: reg,
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adega_http_requests_total",
				Help: "Total number of HTTP requests by route and status code",
			},
			[]string{"method", "route", "code"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "adega_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		predictions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adega_predictions_total",
				Help: "Total number of churn predictions by risk tier",
			},
			[]string{"risk_tier"},
		),
		predictionErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adega_prediction_errors_total",
				Help: "Total number of records that could not be scored",
			},
			[]string{"reason"},
		),
		churnProbability: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "adega_churn_probability",
				Help:    "Distribution of predicted churn probabilities",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
			},
		),
		reloads: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adega_model_reloads_total",
				Help: "Total number of model reloads by outcome",
			},
			[]string{"result"},
		),
	}
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *metrics) observeRequest(method, route string, code int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *metrics) observePrediction(tier string, p float64) {
	m.predictions.WithLabelValues(tier).Inc()
	m.churnProbability.Observe(p)
}
