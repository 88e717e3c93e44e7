package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/kbchat/internal/metrics"
)

func newTestServer(cfg Config) *Server {
	srv := New(cfg, zap.NewNop(), metrics.New())
	srv.Admin(func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(chi.URLParam(r, "botID")))
		})
	})
	return srv
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(Config{Port: 0})

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(Config{})

	srv.Router().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/healthz", nil))

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "kbchat_http_requests_total") {
		t.Error("expected request counter in /metrics output")
	}
}

func TestAdminCORSHeaders(t *testing.T) {
	srv := newTestServer(Config{AdminOrigins: []string{"http://localhost:*"}})

	req := httptest.NewRequest("OPTIONS", "/api/bots/b1/ping", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("expected CORS Allow-Origin header, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest("OPTIONS", "/api/bots/b1/ping", nil)
	req.Header.Set("Origin", "https://evil.test")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unexpected CORS header for a foreign origin")
	}
}

func TestAdminBearerToken(t *testing.T) {
	srv := newTestServer(Config{AdminToken: "t0ken"})

	tests := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Bearer wrong", http.StatusUnauthorized},
		{"t0ken", http.StatusUnauthorized},
		{"Bearer t0ken", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/api/bots/b1/ping", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("Authorization %q: status %d, want %d", tt.header, w.Code, tt.want)
		}
	}

	open := newTestServer(Config{})
	w := httptest.NewRecorder()
	open.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/bots/b7/ping", nil))
	if w.Code != http.StatusOK || w.Body.String() != "b7" {
		t.Errorf("open admin API: %d %q", w.Code, w.Body.String())
	}
}

func TestShutdownBeforeStart(t *testing.T) {
	srv := newTestServer(Config{Port: 0})

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Errorf("Start after Shutdown = %v, want nil", err)
	}
}

func TestStartAndShutdown(t *testing.T) {
	srv := newTestServer(Config{Port: 0})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after Shutdown")
	}
}
