package requests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/frontdesk/internal/db"
)

var (
	// ErrNotFound is returned when no request has the given id.
	ErrNotFound = errors.New("help request not found")
	// ErrConflict is returned when a transition targets a request that is
	// no longer pending.
	ErrConflict = errors.New("help request is not pending")
)

// TxFunc runs additional writes inside the transition's transaction. It
// receives the request as it will be once the transaction commits.
type TxFunc func(ctx context.Context, tx *sql.Tx, r HelpRequest) error

// Store is the durable, authoritative record of every help request.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

const selectColumns = `id, customer_id, question, status, answer, reason, resolved_by, callback_ref,
	created_at, deadline, resolved_at, timed_out_at`

// Create inserts a new pending request. If r.ID is empty a UUID is generated.
func (s *Store) Create(ctx context.Context, r HelpRequest) (*HelpRequest, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.Deadline = r.Deadline.UTC()
	r.Status = StatusPending

	ctx, cancel := s.db.Bound(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO help_requests (id, customer_id, question, status, callback_ref, created_at, deadline)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CustomerID, r.Question, string(r.Status), r.CallbackRef,
		db.FormatTime(r.CreatedAt), db.FormatTime(r.Deadline),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting help request: %w", err)
	}
	return &r, nil
}

// GetByID retrieves a single request.
func (s *Store) GetByID(ctx context.Context, id string) (*HelpRequest, error) {
	ctx, cancel := s.db.Bound(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM help_requests WHERE id = ?", id)
	r, err := scanInto(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting help request: %w", err)
	}
	return r, nil
}

// List returns requests matching the filter, oldest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]HelpRequest, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.DueBy != nil {
		clauses = append(clauses, "deadline <= ?")
		args = append(args, db.FormatTime(*filter.DueBy))
	}

	query := "SELECT " + selectColumns + " FROM help_requests"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	ctx, cancel := s.db.Bound(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing help requests: %w", err)
	}
	defer rows.Close()

	var result []HelpRequest
	for rows.Next() {
		r, err := scanInto(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning help request: %w", err)
		}
		result = append(result, *r)
	}
	return result, rows.Err()
}

// Transition applies t to the request only if it is still pending. The
// status check and the update happen in one transaction, together with
// any extra writes passed as also. It returns ErrNotFound or ErrConflict
// when the request is unknown or already terminal.
func (s *Store) Transition(ctx context.Context, id string, t Transition, also TxFunc) (*HelpRequest, error) {
	if err := validateTransition(t); err != nil {
		return nil, err
	}

	var updated HelpRequest
	err := s.db.InTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM help_requests WHERE id = ?", id)
		current, err := scanInto(row)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("reading help request: %w", err)
		}
		if current.Status != StatusPending {
			return ErrConflict
		}

		updated = t.Apply(*current)

		var answer sql.NullString
		if updated.Status == StatusResolved {
			answer = sql.NullString{String: updated.Answer, Valid: true}
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE help_requests
			SET status = ?, answer = ?, reason = ?, resolved_by = ?, resolved_at = ?, timed_out_at = ?
			WHERE id = ? AND status = 'pending'`,
			string(updated.Status), answer, string(updated.Reason), updated.ResolvedBy,
			db.NullTime(updated.ResolvedAt), db.NullTime(updated.TimedOutAt), id,
		)
		if err != nil {
			return fmt.Errorf("updating help request: %w", err)
		}
		if n, _ := res.RowsAffected(); n != 1 {
			return ErrConflict
		}

		if also != nil {
			return also(ctx, tx, updated)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Counts returns the number of requests in each status.
func (s *Store) Counts(ctx context.Context) (map[Status]int, error) {
	ctx, cancel := s.db.Bound(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM help_requests GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("counting help requests: %w", err)
	}
	defer rows.Close()

	counts := map[Status]int{StatusPending: 0, StatusResolved: 0, StatusUnresolved: 0}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

// DeleteTerminalBefore removes resolved and unresolved requests created
// before the cutoff and returns their ids. Pending requests are never
// removed. Knowledge learned from the deleted requests is left untouched.
func (s *Store) DeleteTerminalBefore(ctx context.Context, before time.Time) ([]string, error) {
	var ids []string
	err := s.db.InTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			"SELECT id FROM help_requests WHERE status != 'pending' AND created_at < ?",
			db.FormatTime(before))
		if err != nil {
			return fmt.Errorf("selecting old help requests: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scanning id: %w", err)
			}
			ids = append(ids, id)
		}
		if err := rows.Close(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM help_requests WHERE status != 'pending' AND created_at < ?",
			db.FormatTime(before)); err != nil {
			return fmt.Errorf("deleting old help requests: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func validateTransition(t Transition) error {
	switch t.Status {
	case StatusResolved:
		if strings.TrimSpace(t.Answer) == "" {
			return fmt.Errorf("resolving requires an answer")
		}
	case StatusUnresolved:
		if t.Reason != ReasonManual && t.Reason != ReasonTimeout {
			return fmt.Errorf("invalid unresolved reason %q", t.Reason)
		}
	default:
		return fmt.Errorf("invalid target status %q", t.Status)
	}
	if t.At.IsZero() {
		return fmt.Errorf("transition time is required")
	}
	return nil
}

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanInto(sc scanner) (*HelpRequest, error) {
	var (
		r                      HelpRequest
		status, reason         string
		answer                 sql.NullString
		createdAt, deadline    string
		resolvedAt, timedOutAt sql.NullString
	)

	err := sc.Scan(&r.ID, &r.CustomerID, &r.Question, &status, &answer, &reason,
		&r.ResolvedBy, &r.CallbackRef, &createdAt, &deadline, &resolvedAt, &timedOutAt)
	if err != nil {
		return nil, err
	}

	r.Status = Status(status)
	r.Reason = Reason(reason)
	r.Answer = answer.String

	if r.CreatedAt, err = db.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if r.Deadline, err = db.ParseTime(deadline); err != nil {
		return nil, err
	}
	if r.ResolvedAt, err = db.ParseNullTime(resolvedAt); err != nil {
		return nil, err
	}
	if r.TimedOutAt, err = db.ParseNullTime(timedOutAt); err != nil {
		return nil, err
	}
	return &r, nil
}
