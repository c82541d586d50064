// Package lifecycle owns the help-request state machine: creation,
// supervisor resolution, manual and timed-out closing, and the in-memory
// index kept in step with the durable store.
package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ziadkadry99/frontdesk/internal/knowledge"
	"github.com/ziadkadry99/frontdesk/internal/requests"
)

// SystemActor is recorded as the actor of sweeper transitions.
const SystemActor = "system"

// Engine creates help requests and applies their single terminal
// transition. The store is authoritative; the cache only ever reflects
// writes that have already committed.
type Engine struct {
	store     RequestStore
	knowledge KnowledgeStore
	notifier  Notifier
	deliverer Deliverer
	observers []Observer

	timeout     time.Duration
	callTimeout time.Duration
	now         func() time.Time
	log         *zap.Logger

	locks *keyLock

	mu     sync.RWMutex
	cache  map[string]requests.HelpRequest
	loaded bool

	bgMu     sync.Mutex
	bg       sync.WaitGroup
	closed   bool
	events   []Event
	draining bool
}

// NewEngine creates an Engine. Call Load before serving traffic so the
// cache reflects what is already in the store.
func NewEngine(store RequestStore, kb KnowledgeStore, opts Options, logger *zap.Logger) *Engine {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:       store,
		knowledge:   kb,
		notifier:    opts.Notifier,
		deliverer:   opts.Deliverer,
		observers:   opts.Observers,
		timeout:     opts.Timeout,
		callTimeout: opts.CallTimeout,
		now:         opts.Now,
		log:         logger.Named("lifecycle"),
		locks:       newKeyLock(),
		cache:       make(map[string]requests.HelpRequest),
	}
}

// Timeout returns the pending window applied to new requests.
func (e *Engine) Timeout() time.Duration { return e.timeout }

// Create records a new pending request and notifies the supervisor.
// Notification failures never fail the call.
func (e *Engine) Create(ctx context.Context, customerID, question, callbackRef string) (*requests.HelpRequest, error) {
	customerID = strings.TrimSpace(customerID)
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, validationError("question is required")
	}
	if customerID == "" {
		return nil, validationError("customer_id is required")
	}

	// The id is fixed up front so the created event is queued under the
	// same lock any later transition of this request takes.
	id := uuid.New().String()
	unlock := e.locks.Lock(id)
	defer unlock()

	now := e.now()
	created, err := e.store.Create(ctx, requests.HelpRequest{
		ID:          id,
		CustomerID:  customerID,
		Question:    question,
		CallbackRef: callbackRef,
		CreatedAt:   now,
		Deadline:    now.Add(e.timeout),
	})
	if err != nil {
		return nil, storeError("creating help request", err)
	}

	e.put(*created)
	e.log.Info("help request created",
		zap.String("request_id", created.ID),
		zap.String("customer_id", created.CustomerID),
		zap.Time("deadline", created.Deadline))

	e.emit(Event{Type: EventCreated, Request: *created, Actor: created.CustomerID, At: now})
	if e.notifier != nil {
		r := *created
		e.background("notify supervisor", r.ID, func(ctx context.Context) error {
			return e.notifier.NotifySupervisor(ctx, r)
		})
	}
	return created, nil
}

// Resolve records the supervisor's answer, stores it as knowledge in the
// same transaction, and delivers it to the caller.
func (e *Engine) Resolve(ctx context.Context, id, answer, by string) (*requests.HelpRequest, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, validationError("answer is required")
	}

	unlock := e.locks.Lock(id)
	defer unlock()

	if cached, ok := e.cached(id); ok && cached.Status.Terminal() {
		return nil, fmt.Errorf("resolving %s: %w", id, ErrAlreadyTerminal)
	}

	now := e.now()
	learn := func(ctx context.Context, tx *sql.Tx, r requests.HelpRequest) error {
		_, err := e.knowledge.AddTx(ctx, tx, knowledge.Entry{
			Question:        r.Question,
			Answer:          r.Answer,
			SourceRequestID: r.ID,
			CreatedAt:       now,
		})
		return err
	}

	updated, err := e.store.Transition(ctx, id, requests.Transition{
		Status: requests.StatusResolved,
		Answer: answer,
		By:     by,
		At:     now,
	}, learn)
	if err != nil {
		e.refreshAfter(ctx, id, err)
		return nil, storeError("resolving "+id, err)
	}

	e.put(*updated)
	e.log.Info("help request resolved",
		zap.String("request_id", id),
		zap.String("resolved_by", by))

	e.emit(Event{Type: EventResolved, Request: *updated, Actor: by, At: now})
	if e.deliverer != nil && updated.CallbackRef != "" {
		r := *updated
		e.background("deliver answer", r.ID, func(ctx context.Context) error {
			return e.deliverer.DeliverAnswer(ctx, r.CallbackRef, r)
		})
	}
	return updated, nil
}

// MarkUnresolved closes a pending request without an answer.
func (e *Engine) MarkUnresolved(ctx context.Context, id, by string) (*requests.HelpRequest, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	if cached, ok := e.cached(id); ok && cached.Status.Terminal() {
		return nil, fmt.Errorf("marking %s unresolved: %w", id, ErrAlreadyTerminal)
	}

	now := e.now()
	updated, err := e.store.Transition(ctx, id, requests.Transition{
		Status: requests.StatusUnresolved,
		Reason: requests.ReasonManual,
		By:     by,
		At:     now,
	}, nil)
	if err != nil {
		e.refreshAfter(ctx, id, err)
		return nil, storeError("marking "+id+" unresolved", err)
	}

	e.put(*updated)
	e.log.Info("help request marked unresolved",
		zap.String("request_id", id),
		zap.String("by", by))

	e.emit(Event{Type: EventMarkedUnresolved, Request: *updated, Actor: by, At: now})
	return updated, nil
}

// SweepOnce times out every pending request whose deadline is at or before
// now. It stops early when ctx is cancelled; a transition already started
// runs to completion on its own bounded context. It returns how many
// requests were timed out and the first store failure, if any.
func (e *Engine) SweepOnce(ctx context.Context, now time.Time) (int, error) {
	if !e.isLoaded() {
		if _, err := e.Load(ctx); err != nil {
			return 0, err
		}
	}

	// Another process sharing the store may have created requests this
	// cache has never seen.
	due, err := e.store.List(ctx, requests.ListFilter{Status: requests.StatusPending, DueBy: &now})
	if ctx.Err() != nil {
		return 0, nil
	}
	if err != nil {
		return 0, storeError("listing overdue help requests", err)
	}
	e.absorb(due)

	var firstErr error
	swept := 0
	for _, r := range due {
		if ctx.Err() != nil {
			break
		}

		tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.callTimeout)
		ok, err := e.timeOut(tctx, r.ID, now)
		cancel()

		if err != nil {
			e.log.Warn("timing out help request failed", zap.String("request_id", r.ID), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			swept++
		}
	}
	return swept, firstErr
}

func (e *Engine) timeOut(ctx context.Context, id string, now time.Time) (bool, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	// A supervisor may have won the lock first.
	if cached, ok := e.cached(id); !ok || !cached.Overdue(now) {
		return false, nil
	}

	updated, err := e.store.Transition(ctx, id, requests.Transition{
		Status: requests.StatusUnresolved,
		Reason: requests.ReasonTimeout,
		By:     SystemActor,
		At:     now,
	}, nil)
	if errors.Is(err, requests.ErrConflict) || errors.Is(err, requests.ErrNotFound) {
		e.refreshAfter(ctx, id, err)
		return false, nil
	}
	if err != nil {
		return false, storeError("timing out "+id, err)
	}

	e.put(*updated)
	e.log.Info("help request timed out",
		zap.String("request_id", id),
		zap.Time("deadline", updated.Deadline))

	e.emit(Event{Type: EventTimedOut, Request: *updated, Actor: SystemActor, At: now})
	return true, nil
}

// Get returns a request by id. Closed requests come from the cache;
// pending ones are re-read so a transition committed by another process
// sharing the database is seen. If that read fails the cached copy is
// returned.
func (e *Engine) Get(ctx context.Context, id string) (*requests.HelpRequest, error) {
	if r, ok := e.cached(id); ok {
		if r.Status.Terminal() {
			return &r, nil
		}
		fresh, err := e.store.GetByID(ctx, id)
		if err != nil {
			e.log.Debug("re-reading pending request failed, using cache", zap.String("id", id), zap.Error(err))
			return &r, nil
		}
		if fresh.Status.Terminal() {
			e.settle(*fresh)
		}
		return fresh, nil
	}

	r, err := e.store.GetByID(ctx, id)
	if err != nil {
		return nil, storeError("getting "+id, err)
	}
	e.putIfAbsent(*r)
	return r, nil
}

// ListPending returns pending requests, oldest first.
func (e *Engine) ListPending(ctx context.Context) ([]requests.HelpRequest, error) {
	return e.list(ctx, requests.StatusPending)
}

// ListUnresolved returns unresolved requests, manual and timed out, oldest first.
func (e *Engine) ListUnresolved(ctx context.Context) ([]requests.HelpRequest, error) {
	return e.list(ctx, requests.StatusUnresolved)
}

// ListResolved returns resolved requests, oldest first.
func (e *Engine) ListResolved(ctx context.Context) ([]requests.HelpRequest, error) {
	return e.list(ctx, requests.StatusResolved)
}

func (e *Engine) list(ctx context.Context, status requests.Status) ([]requests.HelpRequest, error) {
	out, err := e.store.List(ctx, requests.ListFilter{Status: status})
	if err == nil {
		e.absorb(out)
		if out == nil {
			out = []requests.HelpRequest{}
		}
		return out, nil
	}
	if !e.isLoaded() {
		return nil, storeError("listing "+string(status)+" requests", err)
	}

	e.log.Warn("listing from store failed, serving cache",
		zap.String("status", string(status)), zap.Error(err))
	e.mu.RLock()
	out = make([]requests.HelpRequest, 0)
	for _, r := range e.cache {
		if r.Status == status {
			out = append(out, r)
		}
	}
	e.mu.RUnlock()
	sortByCreated(out)
	return out, nil
}

// Load rebuilds the cache from the store and returns the number of
// requests loaded. Overdue pending requests are picked up by the next sweep.
func (e *Engine) Load(ctx context.Context) (int, error) {
	all, err := e.store.List(ctx, requests.ListFilter{})
	if err != nil {
		return 0, storeError("loading help requests", err)
	}

	cache := make(map[string]requests.HelpRequest, len(all))
	pending := 0
	for _, r := range all {
		cache[r.ID] = r
		if r.Status == requests.StatusPending {
			pending++
		}
	}

	e.mu.Lock()
	e.cache = cache
	e.loaded = true
	e.mu.Unlock()

	e.log.Info("help request cache loaded", zap.Int("total", len(all)), zap.Int("pending", pending))
	return len(all), nil
}

// Stats counts requests per status and knowledge entries.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	counts, err := e.store.Counts(ctx)
	if err != nil {
		return Stats{}, storeError("counting help requests", err)
	}
	kb, err := e.knowledge.Count(ctx)
	if err != nil {
		return Stats{}, storeError("counting knowledge entries", err)
	}
	return Stats{
		Pending:    counts[requests.StatusPending],
		Resolved:   counts[requests.StatusResolved],
		Unresolved: counts[requests.StatusUnresolved],
		Knowledge:  kb,
	}, nil
}

// Purge deletes resolved and unresolved requests created before the
// cutoff. Pending requests and learned knowledge are kept.
func (e *Engine) Purge(ctx context.Context, before time.Time) (int, error) {
	ids, err := e.store.DeleteTerminalBefore(ctx, before)
	if err != nil {
		return 0, storeError("purging help requests", err)
	}

	e.mu.Lock()
	for _, id := range ids {
		delete(e.cache, id)
	}
	e.mu.Unlock()

	now := e.now()
	for _, id := range ids {
		e.emit(Event{Type: EventPurged, Request: requests.HelpRequest{ID: id}, Actor: SystemActor, At: now})
	}
	e.log.Info("purged help requests", zap.Int("count", len(ids)), zap.Time("before", before))
	return len(ids), nil
}

// Close waits for in-flight notifications, deliveries and observers.
func (e *Engine) Close() {
	e.bgMu.Lock()
	e.closed = true
	e.bgMu.Unlock()
	e.bg.Wait()
}

// background runs fn on its own bounded context so a slow collaborator
// never holds up the caller. Errors are logged and dropped.
func (e *Engine) background(what, id string, fn func(ctx context.Context) error) {
	e.bgMu.Lock()
	if e.closed {
		e.bgMu.Unlock()
		e.log.Warn("engine closed, skipping "+what, zap.String("request_id", id))
		return
	}
	e.bg.Add(1)
	e.bgMu.Unlock()

	go func() {
		defer e.bg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.callTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			e.log.Warn(what+" failed", zap.String("request_id", id), zap.Error(err))
		}
	}()
}

// emit queues ev for the observers. Events reach observers one at a time
// in the order they were emitted.
func (e *Engine) emit(ev Event) {
	if len(e.observers) == 0 {
		return
	}
	e.bgMu.Lock()
	defer e.bgMu.Unlock()
	if e.closed {
		e.log.Warn("engine closed, skipping observe "+string(ev.Type), zap.String("request_id", ev.Request.ID))
		return
	}
	e.events = append(e.events, ev)
	if !e.draining {
		e.draining = true
		e.bg.Add(1)
		go e.drain()
	}
}

func (e *Engine) drain() {
	defer e.bg.Done()
	for {
		e.bgMu.Lock()
		if len(e.events) == 0 {
			e.draining = false
			e.bgMu.Unlock()
			return
		}
		ev := e.events[0]
		e.events = e.events[1:]
		e.bgMu.Unlock()

		for _, o := range e.observers {
			ctx, cancel := context.WithTimeout(context.Background(), e.callTimeout)
			o.Observe(ctx, ev)
			cancel()
		}
	}
}

// refreshAfter reloads a single cache entry after the store rejected a
// transition, so the cache catches up with a change it missed.
func (e *Engine) refreshAfter(ctx context.Context, id string, err error) {
	switch {
	case errors.Is(err, requests.ErrConflict):
		if r, gerr := e.store.GetByID(ctx, id); gerr == nil {
			e.put(*r)
		}
	case errors.Is(err, requests.ErrNotFound):
		e.mu.Lock()
		delete(e.cache, id)
		e.mu.Unlock()
	}
}

func (e *Engine) cached(id string) (requests.HelpRequest, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.cache[id]
	return r, ok
}

func (e *Engine) put(r requests.HelpRequest) {
	e.mu.Lock()
	e.cache[r.ID] = r
	e.mu.Unlock()
}

func (e *Engine) putIfAbsent(r requests.HelpRequest) {
	e.mu.Lock()
	if _, ok := e.cache[r.ID]; !ok {
		e.cache[r.ID] = r
	}
	e.mu.Unlock()
}

// absorb merges rows read from the store into the cache. Terminal rows
// replace a pending copy; pending rows only fill gaps.
func (e *Engine) absorb(rs []requests.HelpRequest) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range rs {
		cur, ok := e.cache[r.ID]
		if !ok || (r.Status.Terminal() && !cur.Status.Terminal()) {
			e.cache[r.ID] = r
		}
	}
}

// settle records a terminal request in the cache unless the cached copy
// is already terminal.
func (e *Engine) settle(r requests.HelpRequest) {
	e.mu.Lock()
	if cur, ok := e.cache[r.ID]; !ok || !cur.Status.Terminal() {
		e.cache[r.ID] = r
	}
	e.mu.Unlock()
}

func (e *Engine) isLoaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loaded
}

func sortByCreated(rs []requests.HelpRequest) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].CreatedAt.Before(rs[j].CreatedAt)
	})
}
