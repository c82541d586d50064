package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ziadkadry99/frontdesk/internal/db"
	"github.com/ziadkadry99/frontdesk/internal/requests"
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

func testRequest() requests.HelpRequest {
	now := time.Now().UTC()
	return requests.HelpRequest{
		ID:          "req-1",
		CustomerID:  "caller-7",
		Question:    "Do you do balayage?",
		Status:      requests.StatusResolved,
		Answer:      "Yes, from $150",
		CallbackRef: "session-7",
		CreatedAt:   now,
		Deadline:    now.Add(30 * time.Minute),
	}
}

type fakePublisher struct {
	channel   string
	payload   []byte
	receivers int64
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(f.receivers)
	}
	return cmd
}

func TestStoreCreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, Notification{
		Type:      TypeSupervisorAlert,
		RequestID: "req-1",
		Recipient: "dashboard",
		Title:     "Help needed",
		Message:   "hello",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Error("expected generated ID")
	}

	got, err := store.GetByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.RequestID != "req-1" || got.Type != TypeSupervisorAlert {
		t.Errorf("got %+v", got)
	}
	if got.Delivered {
		t.Error("expected Delivered = false")
	}
}

func TestStoreGetByIDNotFound(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.GetByID(context.Background(), "nonexistent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStoreListFilters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	store.Create(ctx, Notification{Type: TypeSupervisorAlert, RequestID: "a", Title: "t", CreatedAt: base})
	store.Create(ctx, Notification{Type: TypeAnswerDelivery, RequestID: "a", Title: "t", Delivered: true, CreatedAt: base.Add(time.Second)})
	store.Create(ctx, Notification{Type: TypeSupervisorAlert, RequestID: "b", Title: "t", CreatedAt: base.Add(2 * time.Second)})

	all, _ := store.List(ctx, ListFilter{})
	if len(all) != 3 {
		t.Fatalf("expected 3, got %d", len(all))
	}
	if all[0].RequestID != "b" {
		t.Errorf("expected newest first, got %q", all[0].RequestID)
	}

	alerts, _ := store.List(ctx, ListFilter{Type: TypeSupervisorAlert})
	if len(alerts) != 2 {
		t.Errorf("alerts = %d, want 2", len(alerts))
	}

	forA, _ := store.List(ctx, ListFilter{RequestID: "a"})
	if len(forA) != 2 {
		t.Errorf("request a = %d, want 2", len(forA))
	}

	pending, _ := store.GetPending(ctx)
	if len(pending) != 2 {
		t.Errorf("pending = %d, want 2", len(pending))
	}

	page, _ := store.List(ctx, ListFilter{Offset: 2})
	if len(page) != 1 {
		t.Errorf("offset page = %d, want 1", len(page))
	}
}

func TestStoreRecordResult(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	n, _ := store.Create(ctx, Notification{Type: TypeAnswerDelivery, Title: "t"})

	if err := store.RecordResult(ctx, n.ID, errors.New("connection refused")); err != nil {
		t.Fatalf("RecordResult: %v", err)
	}
	got, _ := store.GetByID(ctx, n.ID)
	if got.Delivered || got.Error != "connection refused" {
		t.Errorf("after failure: %+v", got)
	}

	if err := store.RecordResult(ctx, n.ID, nil); err != nil {
		t.Fatalf("RecordResult: %v", err)
	}
	got, _ = store.GetByID(ctx, n.ID)
	if !got.Delivered || got.Error != "" {
		t.Errorf("after success: %+v", got)
	}

	if err := store.RecordResult(ctx, "nope", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id err = %v", err)
	}
}

func TestNotifySupervisorWithoutWebhook(t *testing.T) {
	store := setupTestStore(t)
	dispatcher := NewDispatcher(store, "", nil, nil)
	ctx := context.Background()

	if err := dispatcher.NotifySupervisor(ctx, testRequest()); err != nil {
		t.Fatalf("NotifySupervisor: %v", err)
	}

	alerts, _ := store.List(ctx, ListFilter{Type: TypeSupervisorAlert})
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if !alerts[0].Delivered || alerts[0].Recipient != "dashboard" {
		t.Errorf("alert = %+v", alerts[0])
	}
	if !strings.Contains(alerts[0].Message, "Do you do balayage?") {
		t.Errorf("Message = %q", alerts[0].Message)
	}
}

func TestNotifySupervisorWebhook(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	var received SupervisorAlert
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dispatcher := NewDispatcher(store, server.URL, nil, nil)
	if err := dispatcher.NotifySupervisor(ctx, testRequest()); err != nil {
		t.Fatalf("NotifySupervisor: %v", err)
	}

	if received.RequestID != "req-1" || received.Question != "Do you do balayage?" {
		t.Errorf("webhook payload = %+v", received)
	}
	alerts, _ := store.List(ctx, ListFilter{Type: TypeSupervisorAlert})
	if len(alerts) != 1 || !alerts[0].Delivered {
		t.Errorf("alert not marked delivered: %+v", alerts)
	}
}

func TestNotifySupervisorWebhookFailure(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	dispatcher := NewDispatcher(store, server.URL, nil, nil)
	if err := dispatcher.NotifySupervisor(ctx, testRequest()); err == nil {
		t.Fatal("expected error from failing webhook")
	}

	pending, _ := store.GetPending(ctx)
	if len(pending) != 1 || !strings.Contains(pending[0].Error, "502") {
		t.Errorf("failed alert should stay pending with error: %+v", pending)
	}
}

func TestDeliverAnswerOverRedis(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	pub := &fakePublisher{receivers: 1}

	dispatcher := NewDispatcher(store, "", []Channel{NewWebhookChannel(), NewRedisChannel(pub, "")}, nil)
	if err := dispatcher.DeliverAnswer(ctx, "session-7", testRequest()); err != nil {
		t.Fatalf("DeliverAnswer: %v", err)
	}

	if pub.channel != DefaultRedisPrefix+"session-7" {
		t.Errorf("published on %q", pub.channel)
	}
	var a Answer
	if err := json.Unmarshal(pub.payload, &a); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	want := "Regarding your question: 'Do you do balayage?', here's the answer: Yes, from $150"
	if a.Message != want {
		t.Errorf("Message = %q, want %q", a.Message, want)
	}

	sent, _ := store.List(ctx, ListFilter{Type: TypeAnswerDelivery})
	if len(sent) != 1 || !sent[0].Delivered || sent[0].Recipient != "session-7" {
		t.Errorf("delivery record = %+v", sent)
	}
}

func TestDeliverAnswerRedisWithoutSubscriber(t *testing.T) {
	store := setupTestStore(t)
	pub := &fakePublisher{receivers: 0}

	dispatcher := NewDispatcher(store, "", []Channel{NewRedisChannel(pub, "calls:")}, nil)
	err := dispatcher.DeliverAnswer(context.Background(), "session-7", testRequest())
	if err == nil || !strings.Contains(err.Error(), "no subscriber") {
		t.Errorf("err = %v, want no subscriber", err)
	}
	if pub.channel != "calls:session-7" {
		t.Errorf("channel = %q", pub.channel)
	}
}

func TestDeliverAnswerOverWebhook(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	var received Answer
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	pub := &fakePublisher{receivers: 1}
	dispatcher := NewDispatcher(store, "", []Channel{NewWebhookChannel(), NewRedisChannel(pub, "")}, nil)
	if err := dispatcher.DeliverAnswer(ctx, server.URL+"/answers", testRequest()); err != nil {
		t.Fatalf("DeliverAnswer: %v", err)
	}

	if received.Answer != "Yes, from $150" {
		t.Errorf("webhook payload = %+v", received)
	}
	if pub.channel != "" {
		t.Error("redis should not be used for URL refs")
	}
}

func TestDeliverAnswerWithoutChannel(t *testing.T) {
	store := setupTestStore(t)
	dispatcher := NewDispatcher(store, "", nil, nil)

	err := dispatcher.DeliverAnswer(context.Background(), "session-7", testRequest())
	if !errors.Is(err, ErrNoChannel) {
		t.Errorf("err = %v, want ErrNoChannel", err)
	}
	pending, _ := store.GetPending(context.Background())
	if len(pending) != 1 {
		t.Errorf("undelivered answer should be recorded, got %d", len(pending))
	}
}

func TestHTTPHandlers(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	n, _ := store.Create(ctx, Notification{Type: TypeSupervisorAlert, RequestID: "req-1", Title: "t"})
	store.Create(ctx, Notification{Type: TypeAnswerDelivery, RequestID: "req-1", Title: "t", Delivered: true})

	r := chi.NewRouter()
	RegisterRoutes(r, store)

	t.Run("list", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/notifications/?type=supervisor_alert", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var got []Notification
		json.NewDecoder(w.Body).Decode(&got)
		if len(got) != 1 {
			t.Errorf("expected 1, got %d", len(got))
		}
	})

	t.Run("pending", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/notifications/pending", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		var got []Notification
		json.NewDecoder(w.Body).Decode(&got)
		if len(got) != 1 || got[0].ID != n.ID {
			t.Errorf("pending = %+v", got)
		}
	})

	t.Run("get", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/notifications/"+n.ID, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d", w.Code)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/notifications/missing", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", w.Code)
		}
	})
}
