package audit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ziadkadry99/frontdesk/internal/lifecycle"
	"github.com/ziadkadry99/frontdesk/internal/requests"
)

// Recorder writes one audit entry per lifecycle event.
type Recorder struct {
	store *Store
	log   *zap.Logger
}

// NewRecorder creates a Recorder that appends to store.
func NewRecorder(store *Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, log: logger.Named("audit")}
}

// Observe implements lifecycle.Observer. Failures are logged only; the
// transition has already been committed.
func (r *Recorder) Observe(ctx context.Context, ev lifecycle.Event) {
	entry := EntryFor(ev)
	if err := r.store.Log(ctx, entry); err != nil {
		r.log.Warn("writing audit entry failed",
			zap.String("request_id", ev.Request.ID),
			zap.String("action", string(entry.Action)),
			zap.Error(err))
	}
}

// EntryFor converts a lifecycle event into an audit entry.
func EntryFor(ev lifecycle.Event) Entry {
	req := ev.Request
	e := Entry{
		Timestamp: ev.At,
		ActorID:   ev.Actor,
		RequestID: req.ID,
	}

	switch ev.Type {
	case lifecycle.EventCreated:
		e.ActorType = ActorBot
		e.Action = ActionRequestCreated
		e.Summary = fmt.Sprintf("Escalated question from %s", req.CustomerID)
		e.Detail = req.Question
		e.NewValue = string(requests.StatusPending)
	case lifecycle.EventResolved:
		e.ActorType = ActorUser
		e.Action = ActionRequestResolved
		e.Summary = "Supervisor answered the request"
		e.Detail = req.Answer
		e.PreviousValue = string(requests.StatusPending)
		e.NewValue = string(requests.StatusResolved)
	case lifecycle.EventMarkedUnresolved:
		e.ActorType = ActorUser
		e.Action = ActionRequestMarkedUnresolved
		e.Summary = "Supervisor marked the request unresolved"
		e.PreviousValue = string(requests.StatusPending)
		e.NewValue = string(requests.StatusUnresolved)
	case lifecycle.EventTimedOut:
		e.ActorType = ActorSystem
		e.Action = ActionRequestTimedOut
		e.Summary = fmt.Sprintf("No answer before %s", req.Deadline.Format("2006-01-02 15:04 MST"))
		e.PreviousValue = string(requests.StatusPending)
		e.NewValue = string(requests.StatusUnresolved)
	case lifecycle.EventPurged:
		e.ActorType = ActorSystem
		e.Action = ActionRequestPurged
		e.Summary = "Closed request removed by retention purge"
	default:
		e.ActorType = ActorSystem
		e.Action = Action(ev.Type)
	}

	if e.ActorID == "" {
		switch e.ActorType {
		case ActorUser:
			e.ActorID = "supervisor"
		case ActorSystem:
			e.ActorID = lifecycle.SystemActor
		default:
			e.ActorID = "agent"
		}
	}
	return e
}
