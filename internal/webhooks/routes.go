package webhooks

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts webhook endpoints on a router already scoped to
// /api/bots/{botID}.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Route("/webhooks", func(r chi.Router) {
		r.Get("/", handleList(store))
		r.Post("/", handleCreate(store))
		r.Get("/deliveries", handleDeliveries(store))
	})
}

type createRequest struct {
	URL     string            `json:"url"`
	Events  []Event           `json:"events"`
	Active  *bool             `json:"active"`
	Secret  string            `json:"secret"`
	Headers map[string]string `json:"headers"`
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hooks, err := store.List(r.Context(), chi.URLParam(r, "botID"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		out := make([]Webhook, 0, len(hooks))
		for _, h := range hooks {
			out = append(out, h.Redacted())
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func handleCreate(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		u, err := url.Parse(req.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			http.Error(w, "url must be an absolute http(s) URL", http.StatusBadRequest)
			return
		}
		if len(req.Events) == 0 {
			http.Error(w, "at least one event is required", http.StatusBadRequest)
			return
		}
		for _, e := range req.Events {
			if !ValidEvent(e) {
				http.Error(w, "unknown event: "+string(e), http.StatusBadRequest)
				return
			}
		}

		hook := Webhook{
			BotID:   chi.URLParam(r, "botID"),
			URL:     req.URL,
			Events:  req.Events,
			Active:  req.Active == nil || *req.Active,
			Secret:  req.Secret,
			Headers: req.Headers,
		}
		if err := store.Create(r.Context(), &hook); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, hook.Redacted())
	}
}

func handleDeliveries(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := DeliveryFilter{
			BotID:     chi.URLParam(r, "botID"),
			WebhookID: q.Get("webhook_id"),
			Event:     Event(q.Get("event")),
			Limit:     listLimit(q.Get("limit")),
		}
		if v := q.Get("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Offset = n
			}
		}

		logs, err := store.ListDeliveries(r.Context(), filter)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if logs == nil {
			logs = []DeliveryLog{}
		}
		writeJSON(w, http.StatusOK, logs)
	}
}

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// listLimit parses a limit query value. Missing, invalid or non-positive
// values use the default; larger values are capped.
func listLimit(v string) int {
	n, err := strconv.Atoi(v)
	switch {
	case err != nil, n <= 0:
		return defaultListLimit
	case n > maxListLimit:
		return maxListLimit
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
