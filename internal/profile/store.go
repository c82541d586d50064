package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/frontdesk/internal/db"
)

// ErrNotFound is returned when a profile key has no value.
var ErrNotFound = errors.New("profile key not found")

// Store persists the business profile.
type Store struct {
	db *db.DB
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Set inserts or replaces the value for key. A replaced key keeps its
// position in List.
func (s *Store) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("profile key is required")
	}

	ctx, cancel := s.db.Bound(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO business_profile (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, db.FormatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("setting profile %q: %w", key, err)
	}
	return nil
}

// Get returns the item stored under key.
func (s *Store) Get(ctx context.Context, key string) (*Item, error) {
	ctx, cancel := s.db.Bound(ctx)
	defer cancel()

	var (
		it Item
		ts string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT key, value, updated_at FROM business_profile WHERE key = ?", key,
	).Scan(&it.Key, &it.Value, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile %q: %w", key, err)
	}
	if it.UpdatedAt, err = db.ParseTime(ts); err != nil {
		return nil, err
	}
	return &it, nil
}

// List returns every item in insertion order.
func (s *Store) List(ctx context.Context) ([]Item, error) {
	ctx, cancel := s.db.Bound(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value, updated_at FROM business_profile ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("listing profile: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			it Item
			ts string
		)
		if err := rows.Scan(&it.Key, &it.Value, &ts); err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		if it.UpdatedAt, err = db.ParseTime(ts); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.db.Bound(ctx)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM business_profile WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting profile %q: %w", key, err)
	}
	return nil
}

// Text returns the stored profile formatted for the agent.
func (s *Store) Text(ctx context.Context) (string, error) {
	items, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	return Text(items), nil
}
