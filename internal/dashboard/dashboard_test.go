package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ziadkadry99/frontdesk/internal/db"
	"github.com/ziadkadry99/frontdesk/internal/knowledge"
	"github.com/ziadkadry99/frontdesk/internal/lifecycle"
	"github.com/ziadkadry99/frontdesk/internal/requests"
)

func setupTest(t *testing.T) (*Dashboard, *lifecycle.Engine, *Hub) {
	t.Helper()

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}

	hub := NewHub(nil)
	engine := lifecycle.NewEngine(
		requests.NewStore(database),
		knowledge.NewStore(database),
		lifecycle.Options{Observers: []lifecycle.Observer{hub}},
		nil,
	)
	t.Cleanup(func() {
		hub.Close()
		engine.Close()
		database.Close()
	})

	return New(engine, hub, nil), engine, hub
}

func setupRouter(d *Dashboard) chi.Router {
	r := chi.NewRouter()
	d.RegisterRoutes(r)
	return r
}

func dial(t *testing.T, server *httptest.Server, hub *Hub) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/events"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered with the hub")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func read(t *testing.T, conn *websocket.Conn) message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var m message
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	return m
}

func TestRecentEndpoint(t *testing.T) {
	d, engine, _ := setupTest(t)
	r := setupRouter(d)
	ctx := context.Background()

	open, err := engine.Create(ctx, "cust-1", "Do you do nails?", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	done, err := engine.Create(ctx, "cust-2", "Are you open Sunday?", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := engine.Resolve(ctx, done.ID, "No, closed Sundays.", "alice"); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/recent", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var recent recentResponse
	if err := json.NewDecoder(w.Body).Decode(&recent); err != nil {
		t.Fatalf("decoding recent: %v", err)
	}
	if len(recent.Pending) != 1 || recent.Pending[0].ID != open.ID {
		t.Errorf("pending = %+v, want %s", recent.Pending, open.ID)
	}
	if len(recent.Resolved) != 1 || recent.Resolved[0].ID != done.ID {
		t.Errorf("resolved = %+v, want %s", recent.Resolved, done.ID)
	}
	if recent.Unresolved == nil {
		t.Error("unresolved should encode as an empty list")
	}
	if recent.Stats.Pending != 1 || recent.Stats.Resolved != 1 || recent.Stats.Knowledge != 1 {
		t.Errorf("stats = %+v", recent.Stats)
	}
}

func TestNewest(t *testing.T) {
	list := make([]requests.HelpRequest, 15)
	for i := range list {
		list[i].ID = string(rune('a' + i))
	}

	got := newest(list, recentLimit)
	if len(got) != recentLimit {
		t.Fatalf("len = %d, want %d", len(got), recentLimit)
	}
	if got[0].ID != "o" || got[recentLimit-1].ID != "f" {
		t.Errorf("got %s..%s, want o..f", got[0].ID, got[recentLimit-1].ID)
	}
	if got := newest(nil, recentLimit); got == nil || len(got) != 0 {
		t.Errorf("newest(nil) = %v, want empty non-nil", got)
	}
}

func TestWebSocketReceivesEvents(t *testing.T) {
	d, engine, hub := setupTest(t)
	server := httptest.NewServer(setupRouter(d))
	defer server.Close()

	conn := dial(t, server, hub)

	created, err := engine.Create(context.Background(), "cust-1", "Do you sell gift cards?", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	m := read(t, conn)
	if m.Type != "event" || m.Event == nil {
		t.Fatalf("got %+v, want event", m)
	}
	if m.Event.Type != lifecycle.EventCreated || m.RequestID != created.ID {
		t.Errorf("event = %s for %s, want %s for %s", m.Event.Type, m.RequestID, lifecycle.EventCreated, created.ID)
	}
}

func TestWebSocketResolveCommand(t *testing.T) {
	d, engine, hub := setupTest(t)
	server := httptest.NewServer(setupRouter(d))
	defer server.Close()

	created, err := engine.Create(context.Background(), "cust-1", "Do you do balayage?", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	conn := dial(t, server, hub)
	if err := conn.WriteJSON(command{Type: "resolve", RequestID: created.ID, Answer: "Yes, from $180.", By: "alice"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	// The created event may or may not arrive before the reply.
	var gotOK, gotResolved bool
	for i := 0; i < 3 && !(gotOK && gotResolved); i++ {
		m := read(t, conn)
		switch {
		case m.Type == "error":
			t.Fatalf("unexpected error: %s", m.Content)
		case m.Type == "ok":
			gotOK = true
		case m.Type == "event" && m.Event.Type == lifecycle.EventResolved:
			gotResolved = true
		}
	}
	if !gotOK || !gotResolved {
		t.Errorf("ok = %v, resolved event = %v; want both", gotOK, gotResolved)
	}

	got, err := engine.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != requests.StatusResolved || got.ResolvedBy != "alice" {
		t.Errorf("request = %s by %q, want resolved by alice", got.Status, got.ResolvedBy)
	}
}

func TestWebSocketCommandErrors(t *testing.T) {
	d, _, hub := setupTest(t)
	server := httptest.NewServer(setupRouter(d))
	defer server.Close()

	conn := dial(t, server, hub)

	tests := []struct {
		name string
		msg  string
		want string
	}{
		{"invalid json", "{", "invalid message format"},
		{"missing id", `{"type":"resolve","answer":"yes"}`, "request_id is required"},
		{"unknown type", `{"type":"archive","request_id":"r1"}`, "unknown message type"},
		{"unknown request", `{"type":"unresolved","request_id":"r1"}`, "not found"},
		{"empty answer", `{"type":"resolve","request_id":"r1","answer":" "}`, "answer is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.msg)); err != nil {
				t.Fatalf("write: %v", err)
			}
			m := read(t, conn)
			if m.Type != "error" {
				t.Fatalf("type = %q, want error", m.Type)
			}
			if !strings.Contains(m.Content, tt.want) {
				t.Errorf("content = %q, want it to contain %q", m.Content, tt.want)
			}
		})
	}
}

func TestHubCloseDisconnects(t *testing.T) {
	d, _, hub := setupTest(t)
	server := httptest.NewServer(setupRouter(d))
	defer server.Close()

	conn := dial(t, server, hub)
	hub.Close()

	if hub.Count() != 0 {
		t.Errorf("Count = %d after Close, want 0", hub.Count())
	}
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the connection to be closed")
	}
}

func TestServeIndex(t *testing.T) {
	d, _, _ := setupTest(t)
	r := setupRouter(d)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("expected text/html content type, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "Frontdesk Supervisor") {
		t.Error("expected HTML to contain 'Frontdesk Supervisor'")
	}
}
