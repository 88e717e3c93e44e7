package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveTurn(t *testing.T) {
	m := New()
	m.ObserveTurn("fallback", 20*time.Millisecond)
	m.ObserveTurn("fallback", 30*time.Millisecond)
	m.ObserveTurn("grounded", time.Second)

	if got := testutil.ToFloat64(m.chatTurns.WithLabelValues("fallback")); got != 2 {
		t.Errorf("fallback turns = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.chatTurns.WithLabelValues("grounded")); got != 1 {
		t.Errorf("grounded turns = %v, want 1", got)
	}
}

func TestObserveGeneration(t *testing.T) {
	m := New()
	m.ObserveGeneration("gpt-4o-mini", 100, 40, 0.001)

	if got := testutil.ToFloat64(m.generationTokens.WithLabelValues("gpt-4o-mini", "input")); got != 100 {
		t.Errorf("input tokens = %v, want 100", got)
	}
	if got := testutil.ToFloat64(m.generationTokens.WithLabelValues("gpt-4o-mini", "output")); got != 40 {
		t.Errorf("output tokens = %v, want 40", got)
	}
	if got := testutil.ToFloat64(m.generationCost.WithLabelValues("gpt-4o-mini")); got != 0.001 {
		t.Errorf("cost = %v, want 0.001", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveTurn("greeting", time.Millisecond)
	m.ObserveWebhook("chat.message", "success")
	m.ObserveGeneration("x", 1, 1, 1)
	m.ObserveTask("chatlog", "ok")

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	if h := m.Middleware(next); h == nil {
		t.Error("expected passthrough handler")
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/items/{id}", "418")); got != 1 {
		t.Errorf("http requests = %v, want 1", got)
	}

	m.ObserveWebhook("chat.message", "network_error")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `kbchat_webhook_deliveries_total{event="chat.message",outcome="network_error"} 1`) {
		t.Errorf("metrics output missing webhook counter:\n%s", body)
	}
}
