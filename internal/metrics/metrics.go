package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts HTTP requests by method, route, and status code.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optimizer_http_requests_total",
		Help: "Total HTTP requests processed.",
	}, []string{"method", "path", "status"})

	// BackendCalls counts backend calls by phase and outcome.
	BackendCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optimizer_backend_calls_total",
		Help: "Backend calls by phase and outcome.",
	}, []string{"backend", "phase", "outcome"})

	BackendCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "optimizer_backend_call_duration_seconds",
		Help:    "Time spent waiting on a backend call.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"backend", "phase"})

	// Runs counts pipeline runs by overall outcome.
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "optimizer_runs_total",
		Help: "Pipeline runs by outcome.",
	}, []string{"outcome"})

	QuestionChars = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "optimizer_question_chars",
		Help:    "Number of characters in submitted questions.",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
	})

	// BreakerState tracks each backend's circuit: 0 closed, 1 half-open, 2 open.
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "optimizer_backend_breaker_state",
		Help: "Circuit breaker state per backend (0 closed, 1 half-open, 2 open).",
	}, []string{"backend"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "optimizer_rate_limited_total",
		Help: "Requests rejected by the rate limiter.",
	})
)

const (
	OutcomeOK      = "ok"
	OutcomeError   = "error"
	OutcomeTimeout = "timeout"
)
