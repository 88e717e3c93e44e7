// Package metrics exposes the service's Prometheus collectors on a private
// registry. All methods are safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kbchat"

// Metrics holds every collector the service records into.
type Metrics struct {
	registry *prometheus.Registry

	chatTurns           *prometheus.CounterVec
	pipelineDuration    prometheus.Histogram
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	webhookDeliveries   *prometheus.CounterVec
	generationTokens    *prometheus.CounterVec
	generationCost      *prometheus.CounterVec
	backgroundTasks     *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.chatTurns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_turns_total",
			Help:      "Chat turns by terminal state",
		},
		[]string{"state"},
	)
	m.pipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_pipeline_seconds",
			Help:      "Time spent assembling a chat response",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)
	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	m.webhookDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_deliveries_total",
			Help:      "Webhook delivery attempts by event and outcome",
		},
		[]string{"event", "outcome"},
	)
	m.generationTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_tokens_total",
			Help:      "Tokens consumed by chat completions",
		},
		[]string{"model", "direction"},
	)
	m.generationCost = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_cost_usd_total",
			Help:      "Estimated chat completion spend in USD",
		},
		[]string{"model"},
	)
	m.backgroundTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "background_tasks_total",
			Help:      "Detached background tasks by outcome",
		},
		[]string{"task", "outcome"},
	)

	m.registry.MustRegister(
		m.chatTurns,
		m.pipelineDuration,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.webhookDeliveries,
		m.generationTokens,
		m.generationCost,
		m.backgroundTasks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveTurn records one finished chat turn.
func (m *Metrics) ObserveTurn(state string, d time.Duration) {
	if m == nil {
		return
	}
	m.chatTurns.WithLabelValues(state).Inc()
	m.pipelineDuration.Observe(d.Seconds())
}

// ObserveWebhook records one delivery attempt. Outcome is one of
// "success", "http_error" or "network_error".
func (m *Metrics) ObserveWebhook(event, outcome string) {
	if m == nil {
		return
	}
	m.webhookDeliveries.WithLabelValues(event, outcome).Inc()
}

// ObserveGeneration records token usage and estimated spend for one completion.
func (m *Metrics) ObserveGeneration(model string, inputTokens, outputTokens int, costUSD float64) {
	if m == nil {
		return
	}
	m.generationTokens.WithLabelValues(model, "input").Add(float64(inputTokens))
	m.generationTokens.WithLabelValues(model, "output").Add(float64(outputTokens))
	if costUSD > 0 {
		m.generationCost.WithLabelValues(model).Add(costUSD)
	}
}

// ObserveTask records the outcome of a detached task ("ok", "error", "panic").
func (m *Metrics) ObserveTask(task, outcome string) {
	if m == nil {
		return
	}
	m.backgroundTasks.WithLabelValues(task, outcome).Inc()
}

// Middleware collects HTTP request counts and durations labelled by the
// matched chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unknown"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
