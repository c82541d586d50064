package requests

import "time"

// Status is the lifecycle stage of a help request.
type Status string

const (
	StatusPending    Status = "pending"
	StatusResolved   Status = "resolved"
	StatusUnresolved Status = "unresolved"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusResolved, StatusUnresolved:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusUnresolved
}

// Reason tells why a request ended up unresolved. It is recorded for
// reporting only; the public status stays StatusUnresolved either way.
type Reason string

const (
	ReasonNone    Reason = ""
	ReasonManual  Reason = "manual"
	ReasonTimeout Reason = "timeout"
)

// HelpRequest is a question escalated to a human supervisor.
type HelpRequest struct {
	ID          string     `json:"id"`
	CustomerID  string     `json:"customer_id"`
	Question    string     `json:"question"`
	Status      Status     `json:"status"`
	Answer      string     `json:"answer,omitempty"`
	Reason      Reason     `json:"reason,omitempty"`
	ResolvedBy  string     `json:"resolved_by,omitempty"`
	CallbackRef string     `json:"callback_ref,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	Deadline    time.Time  `json:"deadline"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	TimedOutAt  *time.Time `json:"timed_out_at,omitempty"`
}

// Overdue reports whether the request is still pending at or past its deadline.
func (r HelpRequest) Overdue(now time.Time) bool {
	return r.Status == StatusPending && !r.Deadline.After(now)
}

// Transition describes the single terminal change applied to a pending request.
type Transition struct {
	Status Status
	Answer string
	Reason Reason
	By     string
	At     time.Time
}

// Apply returns a copy of r with the transition applied. It does not check
// the current status; Store.Transition does that atomically.
func (t Transition) Apply(r HelpRequest) HelpRequest {
	at := t.At.UTC()
	r.Status = t.Status
	r.ResolvedBy = t.By
	switch t.Status {
	case StatusResolved:
		r.Answer = t.Answer
		r.Reason = ReasonNone
		r.ResolvedAt = &at
	case StatusUnresolved:
		r.Answer = ""
		r.Reason = t.Reason
		r.TimedOutAt = &at
	}
	return r
}

// ListFilter controls which requests are returned by List.
type ListFilter struct {
	Status Status
	// DueBy keeps requests whose deadline is at or before the time.
	DueBy  *time.Time
	Limit  int
	Offset int
}
