package intake

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/frontdesk/internal/lifecycle"
)

// RegisterRoutes mounts POST /api/questions.
func RegisterRoutes(r chi.Router, desk *Desk) {
	r.Post("/api/questions", handleAsk(desk))
}

type askRequest struct {
	CustomerID  string `json:"customer_id"`
	Question    string `json:"question"`
	CallbackRef string `json:"callback_ref"`
}

func handleAsk(desk *Desk) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body askRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
			return
		}

		out, err := desk.Ask(r.Context(), body.CustomerID, body.Question, body.CallbackRef)
		if err != nil {
			lifecycle.WriteError(w, err)
			return
		}

		status := http.StatusOK
		if !out.Found {
			status = http.StatusCreated
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(out)
	}
}
