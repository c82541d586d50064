package lifecycle

import (
	"context"
	"database/sql"
	"time"

	"github.com/ziadkadry99/frontdesk/internal/knowledge"
	"github.com/ziadkadry99/frontdesk/internal/requests"
)

// RequestStore is the durable record of help requests.
type RequestStore interface {
	Create(ctx context.Context, r requests.HelpRequest) (*requests.HelpRequest, error)
	GetByID(ctx context.Context, id string) (*requests.HelpRequest, error)
	List(ctx context.Context, filter requests.ListFilter) ([]requests.HelpRequest, error)
	Transition(ctx context.Context, id string, t requests.Transition, also requests.TxFunc) (*requests.HelpRequest, error)
	Counts(ctx context.Context) (map[requests.Status]int, error)
	DeleteTerminalBefore(ctx context.Context, before time.Time) ([]string, error)
}

// KnowledgeStore receives the answers learned on resolve.
type KnowledgeStore interface {
	AddTx(ctx context.Context, tx *sql.Tx, e knowledge.Entry) (*knowledge.Entry, error)
	Count(ctx context.Context) (int, error)
}

// Notifier tells a supervisor that a new request needs an answer.
type Notifier interface {
	NotifySupervisor(ctx context.Context, r requests.HelpRequest) error
}

// Deliverer routes a resolved answer back to the session identified by
// callbackRef.
type Deliverer interface {
	DeliverAnswer(ctx context.Context, callbackRef string, r requests.HelpRequest) error
}

// Observer receives every lifecycle event after it has been persisted.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// EventType names a lifecycle change.
type EventType string

const (
	EventCreated          EventType = "request_created"
	EventResolved         EventType = "request_resolved"
	EventMarkedUnresolved EventType = "request_marked_unresolved"
	EventTimedOut         EventType = "request_timed_out"
	EventPurged           EventType = "request_purged"
)

// Event is a persisted change to a help request.
type Event struct {
	Type    EventType            `json:"type"`
	Request requests.HelpRequest `json:"request"`
	Actor   string               `json:"actor,omitempty"`
	At      time.Time            `json:"at"`
}

// Stats summarizes the stores for the dashboard.
type Stats struct {
	Pending    int `json:"pending"`
	Resolved   int `json:"resolved"`
	Unresolved int `json:"unresolved"`
	Knowledge  int `json:"knowledge"`
}

// Options configures an Engine. Zero values get defaults.
type Options struct {
	// Timeout is how long a request may stay pending.
	Timeout time.Duration
	// CallTimeout bounds each notification, delivery and sweep transition.
	CallTimeout time.Duration

	Notifier  Notifier
	Deliverer Deliverer
	Observers []Observer

	Now func() time.Time
}

const (
	DefaultTimeout     = 30 * time.Minute
	DefaultCallTimeout = 10 * time.Second
)
