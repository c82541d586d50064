package knowledge

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the knowledge base API routes.
func RegisterRoutes(r chi.Router, store *Store, matcher *Matcher) {
	r.Route("/api/knowledge", func(r chi.Router) {
		r.Get("/", handleList(store))
		r.Post("/query", handleQuery(matcher))
	})
}

func handleList(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := store.List(r.Context())
		if err != nil {
			http.Error(w, `{"error":"knowledge base unavailable"}`, http.StatusServiceUnavailable)
			return
		}
		if entries == nil {
			entries = []Entry{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entries)
	}
}

type queryRequest struct {
	Question string `json:"question"`
}

type queryResponse struct {
	Found      bool    `json:"found"`
	Answer     string  `json:"answer,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Strategy   string  `json:"strategy,omitempty"`
	Entry      *Entry  `json:"entry,omitempty"`
}

func handleQuery(matcher *Matcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		match, found, err := matcher.Match(r.Context(), req.Question)
		if errors.Is(err, ErrEmptyQuestion) {
			http.Error(w, `{"error":"question is required"}`, http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, `{"error":"knowledge base unavailable"}`, http.StatusServiceUnavailable)
			return
		}

		resp := queryResponse{Found: found}
		if found {
			resp.Answer = match.Answer
			resp.Confidence = match.Confidence
			resp.Strategy = match.Strategy
			resp.Entry = &match.Entry
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}
