package audit

import "time"

// ActorType identifies who performed an action.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorSystem ActorType = "system"
	ActorBot    ActorType = "bot"
)

// Action describes what was done.
type Action string

const (
	ActionRequestCreated          Action = "request_created"
	ActionRequestResolved         Action = "request_resolved"
	ActionRequestMarkedUnresolved Action = "request_marked_unresolved"
	ActionRequestTimedOut         Action = "request_timed_out"
	ActionRequestPurged           Action = "request_purged"
)

// Entry is a single audit trail record.
type Entry struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	ActorType     ActorType `json:"actor_type"`
	ActorID       string    `json:"actor_id"`
	Action        Action    `json:"action"`
	RequestID     string    `json:"request_id"`
	Summary       string    `json:"summary"`
	Detail        string    `json:"detail,omitempty"`
	PreviousValue string    `json:"previous_value,omitempty"`
	NewValue      string    `json:"new_value,omitempty"`
}
