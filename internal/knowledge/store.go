package knowledge

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/frontdesk/internal/db"
)

// Store persists knowledge entries.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Add inserts a new entry in its own statement.
func (s *Store) Add(ctx context.Context, e Entry) (*Entry, error) {
	ctx, cancel := s.db.Bound(ctx)
	defer cancel()
	return insert(ctx, s.db, e)
}

// AddTx inserts a new entry as part of the caller's transaction.
func (s *Store) AddTx(ctx context.Context, tx *sql.Tx, e Entry) (*Entry, error) {
	return insert(ctx, tx, e)
}

func insert(ctx context.Context, ex execer, e Entry) (*Entry, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	e.CreatedAt = e.CreatedAt.UTC()
	if e.NormalizedQuestion == "" {
		e.NormalizedQuestion = Normalize(e.Question)
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO knowledge_entries (id, question, normalized_question, answer, source_request_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Question, e.NormalizedQuestion, e.Answer, e.SourceRequestID, db.FormatTime(e.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting knowledge entry: %w", err)
	}
	return &e, nil
}

// List returns every entry, newest first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	ctx, cancel := s.db.Bound(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question, normalized_question, answer, source_request_id, created_at
		FROM knowledge_entries
		ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing knowledge entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Question, &e.NormalizedQuestion, &e.Answer, &e.SourceRequestID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning knowledge entry: %w", err)
		}
		if e.CreatedAt, err = db.ParseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	ctx, cancel := s.db.Bound(ctx)
	defer cancel()

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM knowledge_entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting knowledge entries: %w", err)
	}
	return n, nil
}
