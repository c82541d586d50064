// Package dashboard serves the supervisor page and its live event feed.
package dashboard

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ziadkadry99/frontdesk/internal/lifecycle"
	"github.com/ziadkadry99/frontdesk/internal/requests"
)

// Engine is the part of the lifecycle engine the dashboard drives.
type Engine interface {
	ListPending(ctx context.Context) ([]requests.HelpRequest, error)
	ListResolved(ctx context.Context) ([]requests.HelpRequest, error)
	ListUnresolved(ctx context.Context) ([]requests.HelpRequest, error)
	Stats(ctx context.Context) (lifecycle.Stats, error)
	Resolve(ctx context.Context, id, answer, by string) (*requests.HelpRequest, error)
	MarkUnresolved(ctx context.Context, id, by string) (*requests.HelpRequest, error)
}

// Dashboard provides the supervisor page, a recent-activity summary and the
// websocket feed.
type Dashboard struct {
	engine Engine
	hub    *Hub
	log    *zap.Logger
}

// New creates a Dashboard. The hub must also be registered as an engine
// observer for events to reach connected pages.
func New(engine Engine, hub *Hub, logger *zap.Logger) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dashboard{engine: engine, hub: hub, log: logger.Named("dashboard")}
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/", d.ServeIndex)
	r.Get("/api/dashboard/recent", d.handleRecent)
	r.Get("/ws/events", d.handleWebSocket)
}

func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	d.hub.Serve(w, r, d.handleCommand)
}

// commandTimeout bounds a resolve or unresolved command from the page.
const commandTimeout = 10 * time.Second

func (d *Dashboard) handleCommand(cmd command) message {
	if strings.TrimSpace(cmd.RequestID) == "" {
		return message{Type: "error", Content: "request_id is required"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	switch cmd.Type {
	case "resolve":
		_, err = d.engine.Resolve(ctx, cmd.RequestID, cmd.Answer, cmd.By)
	case "unresolved":
		_, err = d.engine.MarkUnresolved(ctx, cmd.RequestID, cmd.By)
	default:
		return message{Type: "error", RequestID: cmd.RequestID, Content: "unknown message type: " + cmd.Type}
	}
	if err != nil {
		d.log.Info("dashboard command failed",
			zap.String("type", cmd.Type),
			zap.String("request_id", cmd.RequestID),
			zap.Error(err))
		return message{Type: "error", RequestID: cmd.RequestID, Content: err.Error()}
	}
	return message{Type: "ok", RequestID: cmd.RequestID}
}
