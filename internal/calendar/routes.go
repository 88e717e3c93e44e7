package calendar

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts appointment endpoints on a router already scoped to
// /api/bots/{botID}.
func RegisterRoutes(r chi.Router, store *Store) {
	r.Get("/appointments", handleListInterests(store))
}

func handleListInterests(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		botID := chi.URLParam(r, "botID")

		interests, err := store.ListInterests(r.Context(), botID, listLimit(r.URL.Query().Get("limit")))
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if interests == nil {
			interests = []Interest{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(interests)
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
