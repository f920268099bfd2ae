package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// GetTransient returns the raw value cached under key.
func (s *Store) GetTransient(key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRow("SELECT value FROM transients WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read transient %s: %w", key, err)
	}
	return value, true, nil
}

// SetTransient caches value under key.
func (s *Store) SetTransient(key string, value []byte) error {
	query := `
		INSERT INTO transients (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP;
	`
	if _, err := s.db.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to write transient %s: %w", key, err)
	}
	return nil
}

// DeleteTransient removes the cached value under key.
func (s *Store) DeleteTransient(key string) error {
	_, err := s.db.Exec("DELETE FROM transients WHERE key = ?", key)
	return err
}

// TransientSlot exposes the transients table as a release cache slot.
type TransientSlot struct {
	store *Store
}

// NewTransientSlot wraps s.
func NewTransientSlot(s *Store) *TransientSlot {
	return &TransientSlot{store: s}
}

func (t *TransientSlot) Load(key string) ([]byte, bool, error) { return t.store.GetTransient(key) }

func (t *TransientSlot) Save(key string, value []byte) error { return t.store.SetTransient(key, value) }

func (t *TransientSlot) Delete(key string) error { return t.store.DeleteTransient(key) }
