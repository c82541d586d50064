package dashboard

import (
	"encoding/json"
	"net/http"

	"github.com/ziadkadry99/frontdesk/internal/lifecycle"
	"github.com/ziadkadry99/frontdesk/internal/requests"
)

// recentLimit caps each closed-request list in the recent summary.
const recentLimit = 10

// recentResponse is the JSON response for the recent activity endpoint.
type recentResponse struct {
	Stats      lifecycle.Stats        `json:"stats"`
	Pending    []requests.HelpRequest `json:"pending"`
	Resolved   []requests.HelpRequest `json:"resolved"`
	Unresolved []requests.HelpRequest `json:"unresolved"`
}

func (d *Dashboard) handleRecent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := d.engine.Stats(ctx)
	if err != nil {
		lifecycle.WriteError(w, err)
		return
	}
	pending, err := d.engine.ListPending(ctx)
	if err != nil {
		lifecycle.WriteError(w, err)
		return
	}
	resolved, err := d.engine.ListResolved(ctx)
	if err != nil {
		lifecycle.WriteError(w, err)
		return
	}
	unresolved, err := d.engine.ListUnresolved(ctx)
	if err != nil {
		lifecycle.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recentResponse{
		Stats:      stats,
		Pending:    nonNil(pending),
		Resolved:   newest(resolved, recentLimit),
		Unresolved: newest(unresolved, recentLimit),
	})
}

// newest returns the last n requests of a list ordered oldest first, newest
// first.
func newest(list []requests.HelpRequest, n int) []requests.HelpRequest {
	if len(list) > n {
		list = list[len(list)-n:]
	}
	out := make([]requests.HelpRequest, len(list))
	for i, r := range list {
		out[len(list)-1-i] = r
	}
	return out
}

func nonNil(list []requests.HelpRequest) []requests.HelpRequest {
	if list == nil {
		return []requests.HelpRequest{}
	}
	return list
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
