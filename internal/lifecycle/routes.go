package lifecycle

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/frontdesk/internal/requests"
)

// RetryAfterSeconds is sent with 503 responses.
const RetryAfterSeconds = "5"

// RegisterRoutes mounts the help request and stats endpoints.
func RegisterRoutes(r chi.Router, engine *Engine) {
	r.Route("/api/requests", func(r chi.Router) {
		r.Get("/", handleList(engine))
		r.Get("/{id}", handleGet(engine))
		r.Get("/{id}/status", handleStatus(engine))
		r.Post("/{id}/resolve", handleResolve(engine))
		r.Post("/{id}/unresolved", handleMarkUnresolved(engine))
	})
	r.Get("/api/stats", handleStats(engine))
}

func handleList(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			list []requests.HelpRequest
			err  error
		)
		switch status := requests.Status(r.URL.Query().Get("status")); status {
		case requests.StatusPending:
			list, err = engine.ListPending(r.Context())
		case requests.StatusResolved:
			list, err = engine.ListResolved(r.Context())
		case requests.StatusUnresolved:
			list, err = engine.ListUnresolved(r.Context())
		case "":
			list, err = listAll(engine, r)
		default:
			WriteError(w, validationError("unknown status %q", status))
			return
		}
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func listAll(engine *Engine, r *http.Request) ([]requests.HelpRequest, error) {
	pending, err := engine.ListPending(r.Context())
	if err != nil {
		return nil, err
	}
	resolved, err := engine.ListResolved(r.Context())
	if err != nil {
		return nil, err
	}
	unresolved, err := engine.ListUnresolved(r.Context())
	if err != nil {
		return nil, err
	}

	all := append(append(pending, resolved...), unresolved...)
	sortByCreated(all)
	return all, nil
}

func handleGet(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := engine.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, req)
	}
}

// StatusResponse is what the calling agent polls for.
type StatusResponse struct {
	ID     string          `json:"id"`
	Status requests.Status `json:"status"`
	Answer string          `json:"answer,omitempty"`
}

func handleStatus(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := engine.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteError(w, err)
			return
		}
		resp := StatusResponse{ID: req.ID, Status: req.Status}
		if req.Status == requests.StatusResolved {
			resp.Answer = req.Answer
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

type resolveRequest struct {
	Answer     string `json:"answer"`
	ResolvedBy string `json:"resolved_by"`
}

func handleResolve(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body resolveRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteError(w, validationError("invalid request body"))
			return
		}

		req, err := engine.Resolve(r.Context(), chi.URLParam(r, "id"), body.Answer, body.ResolvedBy)
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, req)
	}
}

type unresolvedRequest struct {
	ResolvedBy string `json:"resolved_by"`
}

func handleMarkUnresolved(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body unresolvedRequest
		// An empty body is allowed.
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				WriteError(w, validationError("invalid request body"))
				return
			}
		}

		req, err := engine.MarkUnresolved(r.Context(), chi.URLParam(r, "id"), body.ResolvedBy)
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, req)
	}
}

func handleStats(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := engine.Stats(r.Context())
		if err != nil {
			WriteError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

// StatusCode maps an engine error to its HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyTerminal):
		return http.StatusConflict
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as a JSON error body with the mapped status.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", RetryAfterSeconds)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
