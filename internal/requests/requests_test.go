package requests

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ziadkadry99/frontdesk/internal/db"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func newPending(id string, created time.Time) HelpRequest {
	return HelpRequest{
		ID:          id,
		CustomerID:  "room-42",
		Question:    "What are your hours?",
		Status:      StatusPending,
		CallbackRef: "session-" + id,
		CreatedAt:   created,
		Deadline:    created.Add(30 * time.Minute),
	}
}

func TestCreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	created, err := store.Create(ctx, newPending("", now))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Error("expected generated ID")
	}
	if created.Status != StatusPending {
		t.Errorf("Status = %q, want pending", created.Status)
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Question != "What are your hours?" {
		t.Errorf("Question = %q", got.Question)
	}
	if got.CallbackRef != "session-" {
		t.Errorf("CallbackRef = %q, want %q", got.CallbackRef, "session-")
	}
	if !got.Deadline.Equal(now.Add(30 * time.Minute)) {
		t.Errorf("Deadline = %v, want %v", got.Deadline, now.Add(30*time.Minute))
	}
	if got.Answer != "" || got.ResolvedAt != nil || got.TimedOutAt != nil {
		t.Errorf("pending request carries terminal fields: %+v", got)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListByStatus(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, id := range []string{"a", "b", "c"} {
		if _, err := store.Create(ctx, newPending(id, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("Create %s: %v", id, err)
		}
	}
	if _, err := store.Transition(ctx, "b", Transition{
		Status: StatusResolved, Answer: "9-6", At: base,
	}, nil); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	pending, err := store.List(ctx, ListFilter{Status: StatusPending})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != "a" || pending[1].ID != "c" {
		t.Errorf("pending = %v, want [a c] oldest first", ids(pending))
	}

	all, err := store.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 requests, got %d", len(all))
	}

	page, err := store.List(ctx, ListFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("List page: %v", err)
	}
	if len(page) != 1 || page[0].ID != "b" {
		t.Errorf("page = %v, want [b]", ids(page))
	}
}

func TestTransitionResolve(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := store.Create(ctx, newPending("r1", now)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Transition(ctx, "r1", Transition{
		Status: StatusResolved, Answer: "We're open 9-6 Mon-Sat", By: "sam", At: now,
	}, nil)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if got.Status != StatusResolved || got.Answer != "We're open 9-6 Mon-Sat" {
		t.Errorf("unexpected result: %+v", got)
	}
	if got.ResolvedAt == nil || !got.ResolvedAt.Equal(now) {
		t.Errorf("ResolvedAt = %v, want %v", got.ResolvedAt, now)
	}

	stored, err := store.GetByID(ctx, "r1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Status != StatusResolved || stored.ResolvedBy != "sam" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestTransitionOnlyOnce(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := store.Create(ctx, newPending("r1", now)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := store.Transition(ctx, "r1", Transition{
		Status: StatusResolved, Answer: "first", At: now,
	}, nil); err != nil {
		t.Fatalf("first Transition: %v", err)
	}

	_, err := store.Transition(ctx, "r1", Transition{
		Status: StatusUnresolved, Reason: ReasonTimeout, At: now,
	}, nil)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("second Transition err = %v, want ErrConflict", err)
	}

	stored, _ := store.GetByID(ctx, "r1")
	if stored.Status != StatusResolved || stored.Answer != "first" || stored.TimedOutAt != nil {
		t.Errorf("second transition changed the record: %+v", stored)
	}
}

func TestTransitionNotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.Transition(context.Background(), "missing", Transition{
		Status: StatusUnresolved, Reason: ReasonManual, At: time.Now(),
	}, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTransitionRollsBackWhenExtraWriteFails(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := store.Create(ctx, newPending("r1", now)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	sentinel := errors.New("knowledge write failed")
	_, err := store.Transition(ctx, "r1", Transition{
		Status: StatusResolved, Answer: "x", At: now,
	}, func(ctx context.Context, tx *sql.Tx, r HelpRequest) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}

	stored, _ := store.GetByID(ctx, "r1")
	if stored.Status != StatusPending {
		t.Errorf("Status = %q, want pending after rollback", stored.Status)
	}
}

func TestTransitionValidation(t *testing.T) {
	store := setupTestStore(t)
	now := time.Now()

	tests := []struct {
		name string
		tr   Transition
	}{
		{"resolve without answer", Transition{Status: StatusResolved, At: now}},
		{"unresolved without reason", Transition{Status: StatusUnresolved, At: now}},
		{"back to pending", Transition{Status: StatusPending, At: now}},
		{"missing time", Transition{Status: StatusResolved, Answer: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Transition(context.Background(), "any", tt.tr, nil); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestTimeoutTransitionTagsReason(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := store.Create(ctx, newPending("r1", now.Add(-31*time.Minute))); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := store.Transition(ctx, "r1", Transition{
		Status: StatusUnresolved, Reason: ReasonTimeout, At: now,
	}, nil)
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if got.Reason != ReasonTimeout || got.TimedOutAt == nil || got.Answer != "" {
		t.Errorf("unexpected timed out record: %+v", got)
	}
}

func TestCounts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	store.Create(ctx, newPending("a", now))
	store.Create(ctx, newPending("b", now))
	store.Transition(ctx, "a", Transition{Status: StatusUnresolved, Reason: ReasonManual, At: now}, nil)

	counts, err := store.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts[StatusPending] != 1 || counts[StatusUnresolved] != 1 || counts[StatusResolved] != 0 {
		t.Errorf("counts = %v", counts)
	}
}

func TestDeleteTerminalBeforeKeepsPending(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	old := time.Now().UTC().Add(-48 * time.Hour)

	store.Create(ctx, newPending("done", old))
	store.Create(ctx, newPending("waiting", old))
	store.Transition(ctx, "done", Transition{Status: StatusResolved, Answer: "a", At: old}, nil)

	deleted, err := store.DeleteTerminalBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteTerminalBefore: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "done" {
		t.Errorf("deleted = %v, want [done]", deleted)
	}
	if _, err := store.GetByID(ctx, "waiting"); err != nil {
		t.Errorf("pending request should survive: %v", err)
	}
}

func TestStoreSurfacesDriverErrors(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer sqlDB.Close()

	store := NewStore(db.New(sqlDB, time.Second))
	driverErr := errors.New("database is locked")

	mock.ExpectExec("INSERT INTO help_requests").WillReturnError(driverErr)
	if _, err := store.Create(context.Background(), newPending("r1", time.Now())); !errors.Is(err, driverErr) {
		t.Errorf("Create err = %v, want wrapped driver error", err)
	}

	mock.ExpectBegin().WillReturnError(driverErr)
	_, err = store.Transition(context.Background(), "r1", Transition{
		Status: StatusResolved, Answer: "a", At: time.Now(),
	}, nil)
	if !errors.Is(err, driverErr) {
		t.Errorf("Transition err = %v, want wrapped driver error", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListDueBy(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	store.Create(ctx, newPending("old", base))
	store.Create(ctx, newPending("edge", base.Add(10*time.Minute)))
	store.Create(ctx, newPending("fresh", base.Add(20*time.Minute)))
	store.Create(ctx, newPending("closed", base))
	if _, err := store.Transition(ctx, "closed", Transition{Status: StatusResolved, Answer: "9-6", At: base}, nil); err != nil {
		t.Fatalf("Transition: %v", err)
	}

	// "edge" is due exactly at the cutoff.
	cutoff := base.Add(40 * time.Minute)
	got, err := store.List(ctx, ListFilter{Status: StatusPending, DueBy: &cutoff})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if want := []string{"old", "edge"}; !slices.Equal(ids(got), want) {
		t.Errorf("due = %v, want %v", ids(got), want)
	}
}

func TestApplyKeepsFieldsConsistent(t *testing.T) {
	now := time.Now()
	pending := newPending("r1", now)

	resolved := Transition{Status: StatusResolved, Answer: "yes", At: now}.Apply(pending)
	if resolved.Answer == "" || resolved.ResolvedAt == nil || resolved.TimedOutAt != nil {
		t.Errorf("resolved fields inconsistent: %+v", resolved)
	}

	unresolved := Transition{Status: StatusUnresolved, Reason: ReasonManual, At: now}.Apply(pending)
	if unresolved.Answer != "" || unresolved.ResolvedAt != nil || unresolved.TimedOutAt == nil {
		t.Errorf("unresolved fields inconsistent: %+v", unresolved)
	}
}

func TestOverdue(t *testing.T) {
	now := time.Now()
	r := newPending("r1", now.Add(-31*time.Minute))
	if !r.Overdue(now) {
		t.Error("expected overdue")
	}
	r.Status = StatusResolved
	if r.Overdue(now) {
		t.Error("terminal request is never overdue")
	}
	if newPending("r2", now).Overdue(now) {
		t.Error("fresh request is not overdue")
	}
}

func ids(rs []HelpRequest) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
