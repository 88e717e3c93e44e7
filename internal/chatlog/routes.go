package chatlog

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts chat log endpoints on a router already scoped to
// /api/bots/{botID}.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Get("/chat-logs", handleList(store))
	r.Get("/analytics", handleAnalytics(store))
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		filter := ListFilter{
			BotID:     chi.URLParam(r, "botID"),
			SessionID: q.Get("session_id"),
			State:     State(q.Get("state")),
			Limit:     listLimit(q.Get("limit")),
		}
		if v := q.Get("since"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				filter.Since = &t
			}
		}
		if v := q.Get("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				filter.Offset = n
			}
		}

		turns, err := store.List(r.Context(), filter)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if turns == nil {
			turns = []Turn{}
		}

		writeJSON(w, http.StatusOK, turns)
	}
}

func handleAnalytics(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var since *time.Time
		if v := r.URL.Query().Get("since"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				since = &t
			}
		}

		stats, err := store.Stats(r.Context(), chi.URLParam(r, "botID"), since)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, stats)
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
