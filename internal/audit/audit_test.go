package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/frontdesk/internal/db"
	"github.com/ziadkadry99/frontdesk/internal/knowledge"
	"github.com/ziadkadry99/frontdesk/internal/lifecycle"
	"github.com/ziadkadry99/frontdesk/internal/requests"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestLogAndGetByID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	entry := Entry{
		ID:            "test-1",
		ActorType:     ActorUser,
		ActorID:       "alice",
		Action:        ActionRequestResolved,
		RequestID:     "req-1",
		Summary:       "Supervisor answered the request",
		Detail:        "We close at 7pm.",
		PreviousValue: "pending",
		NewValue:      "resolved",
	}

	if err := store.Log(ctx, entry); err != nil {
		t.Fatalf("Log: %v", err)
	}

	got, err := store.GetByID(ctx, "test-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}

	if got.ActorID != "alice" {
		t.Errorf("ActorID = %q, want %q", got.ActorID, "alice")
	}
	if got.Action != ActionRequestResolved {
		t.Errorf("Action = %q, want %q", got.Action, ActionRequestResolved)
	}
	if got.RequestID != "req-1" {
		t.Errorf("RequestID = %q, want %q", got.RequestID, "req-1")
	}
	if got.PreviousValue != "pending" || got.NewValue != "resolved" {
		t.Errorf("values = %q -> %q, want pending -> resolved", got.PreviousValue, got.NewValue)
	}
	if got.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestLogGeneratesID(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	if err := store.Log(ctx, Entry{
		ActorType: ActorSystem,
		ActorID:   "system",
		Action:    ActionRequestTimedOut,
		RequestID: "req-1",
	}); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := store.Query(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].ID == "" {
		t.Error("expected a generated ID")
	}
}

func TestQueryFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	seed := []Entry{
		{ActorType: ActorBot, ActorID: "cust-1", Action: ActionRequestCreated, RequestID: "req-1", Timestamp: base},
		{ActorType: ActorUser, ActorID: "alice", Action: ActionRequestResolved, RequestID: "req-1", Timestamp: base.Add(time.Minute)},
		{ActorType: ActorBot, ActorID: "cust-2", Action: ActionRequestCreated, RequestID: "req-2", Timestamp: base.Add(2 * time.Minute)},
		{ActorType: ActorSystem, ActorID: "system", Action: ActionRequestTimedOut, RequestID: "req-2", Timestamp: base.Add(time.Hour)},
	}
	for _, e := range seed {
		if err := store.Log(ctx, e); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter QueryFilter
		want   int
	}{
		{"all", QueryFilter{}, 4},
		{"by request", QueryFilter{RequestID: "req-2"}, 2},
		{"by actor", QueryFilter{ActorID: "alice"}, 1},
		{"by action", QueryFilter{Action: ActionRequestCreated}, 2},
		{"since", QueryFilter{Since: ptrTime(base.Add(90 * time.Second))}, 2},
		{"until", QueryFilter{Until: ptrTime(base.Add(time.Minute))}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := store.Query(ctx, tt.filter)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if len(entries) != tt.want {
				t.Errorf("got %d entries, want %d", len(entries), tt.want)
			}
		})
	}

	entries, err := store.Query(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if entries[0].Action != ActionRequestTimedOut {
		t.Errorf("first entry = %q, want newest (%q)", entries[0].Action, ActionRequestTimedOut)
	}
}

func ptrTime(t time.Time) *time.Time { return &t }

func TestQueryLimitOffset(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := store.Log(ctx, Entry{
			ActorType: ActorUser,
			ActorID:   "alice",
			Action:    ActionRequestMarkedUnresolved,
		}); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	entries, err := store.Query(ctx, QueryFilter{Limit: 2})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries with limit, got %d", len(entries))
	}

	entries, err = store.Query(ctx, QueryFilter{Limit: 2, Offset: 3})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries with offset, got %d", len(entries))
	}

	entries, err = store.Query(ctx, QueryFilter{Offset: 4})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 entry with offset only, got %d", len(entries))
	}
}

func TestDeleteBefore(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := store.Log(ctx, Entry{
			ActorType: ActorSystem,
			ActorID:   "system",
			Action:    ActionRequestTimedOut,
		}); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	deleted, err := store.DeleteBefore(ctx, time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if deleted != 3 {
		t.Errorf("expected 3 deleted, got %d", deleted)
	}

	entries, err := store.Query(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected 0 remaining entries, got %d", len(entries))
	}
}

func TestGetByIDNotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.GetByID(context.Background(), "nonexistent")
	if err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// --- Recorder tests ---

func TestEntryFor(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	req := requests.HelpRequest{ID: "req-1", CustomerID: "cust-1", Question: "Do you sell gift cards?", Deadline: at.Add(time.Hour)}

	tests := []struct {
		name      string
		ev        lifecycle.Event
		action    Action
		actorType ActorType
		actorID   string
		newValue  string
	}{
		{"created", lifecycle.Event{Type: lifecycle.EventCreated, Request: req, Actor: "cust-1", At: at}, ActionRequestCreated, ActorBot, "cust-1", "pending"},
		{"resolved", lifecycle.Event{Type: lifecycle.EventResolved, Request: req, Actor: "alice", At: at}, ActionRequestResolved, ActorUser, "alice", "resolved"},
		{"resolved anonymously", lifecycle.Event{Type: lifecycle.EventResolved, Request: req, At: at}, ActionRequestResolved, ActorUser, "supervisor", "resolved"},
		{"marked", lifecycle.Event{Type: lifecycle.EventMarkedUnresolved, Request: req, Actor: "bob", At: at}, ActionRequestMarkedUnresolved, ActorUser, "bob", "unresolved"},
		{"timed out", lifecycle.Event{Type: lifecycle.EventTimedOut, Request: req, Actor: lifecycle.SystemActor, At: at}, ActionRequestTimedOut, ActorSystem, "system", "unresolved"},
		{"purged", lifecycle.Event{Type: lifecycle.EventPurged, Request: requests.HelpRequest{ID: "req-1"}, At: at}, ActionRequestPurged, ActorSystem, "system", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := EntryFor(tt.ev)
			if e.Action != tt.action {
				t.Errorf("Action = %q, want %q", e.Action, tt.action)
			}
			if e.ActorType != tt.actorType {
				t.Errorf("ActorType = %q, want %q", e.ActorType, tt.actorType)
			}
			if e.ActorID != tt.actorID {
				t.Errorf("ActorID = %q, want %q", e.ActorID, tt.actorID)
			}
			if e.NewValue != tt.newValue {
				t.Errorf("NewValue = %q, want %q", e.NewValue, tt.newValue)
			}
			if e.RequestID != "req-1" {
				t.Errorf("RequestID = %q, want req-1", e.RequestID)
			}
			if !e.Timestamp.Equal(at) {
				t.Errorf("Timestamp = %v, want %v", e.Timestamp, at)
			}
		})
	}
}

func TestRecorderFollowsEngine(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := NewStore(database)
	engine := lifecycle.NewEngine(
		requests.NewStore(database),
		knowledge.NewStore(database),
		lifecycle.Options{Observers: []lifecycle.Observer{NewRecorder(store, nil)}},
		nil,
	)
	ctx := context.Background()

	req, err := engine.Create(ctx, "cust-1", "Do you do balayage?", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := engine.Resolve(ctx, req.ID, "Yes, from $180.", "alice"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	engine.Close()

	entries, err := store.Query(ctx, QueryFilter{RequestID: req.ID})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}

	actions := map[Action]bool{}
	for _, e := range entries {
		actions[e.Action] = true
	}
	if !actions[ActionRequestCreated] || !actions[ActionRequestResolved] {
		t.Errorf("actions = %v, want created and resolved", actions)
	}
}

// --- HTTP handler tests ---

func setupRouter(t *testing.T) (chi.Router, *Store) {
	t.Helper()
	store := setupStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, store)
	return r, store
}

func TestHTTPGetByID(t *testing.T) {
	r, store := setupRouter(t)
	ctx := context.Background()

	entry := Entry{
		ID:        "http-1",
		ActorType: ActorUser,
		ActorID:   "alice",
		Action:    ActionRequestResolved,
		RequestID: "req-1",
		Summary:   "Supervisor answered the request",
	}
	if err := store.Log(ctx, entry); err != nil {
		t.Fatalf("Log: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/audit/http-1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var got Entry
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "http-1" {
		t.Errorf("ID = %q, want %q", got.ID, "http-1")
	}
	if got.ActorID != "alice" {
		t.Errorf("ActorID = %q, want %q", got.ActorID, "alice")
	}
}

func TestHTTPGetByIDNotFound(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/audit/missing", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestHTTPQueryEmpty(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/audit/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("body = %q, want empty JSON array", body)
	}
}

func TestHTTPQueryWithFilter(t *testing.T) {
	r, store := setupRouter(t)
	ctx := context.Background()

	for _, reqID := range []string{"req-1", "req-2", "req-1"} {
		if err := store.Log(ctx, Entry{
			ActorType: ActorUser,
			ActorID:   "alice",
			Action:    ActionRequestMarkedUnresolved,
			RequestID: reqID,
		}); err != nil {
			t.Fatalf("Log: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/audit/?request_id=req-1&limit=10", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var entries []Entry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 entries for req-1, got %d", len(entries))
	}
}
