package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// Sync bookkeeping lives in a small key-value table. Keys are namespaced by
// the callers (cooldown/<kind>/<owner>, watermark/<kind>/<owner>,
// notify/<type>/<owner>) so unrelated trigger types never share or reset
// each other's state.

// GetSyncMark returns the stored epoch-millisecond value for key, and
// whether any value was recorded.
func (s *SQLiteStore) GetSyncMark(ctx context.Context, key string) (int64, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM sync_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get sync mark %q: %w", key, err)
	}

	millis, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("get sync mark %q: parse %q: %w", key, value, err)
	}
	return millis, true, nil
}

// SetSyncMark stores the epoch-millisecond value for key, replacing any
// prior value.
func (s *SQLiteStore) SetSyncMark(ctx context.Context, key string, epochMillis int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, strconv.FormatInt(epochMillis, 10))
	if err != nil {
		return fmt.Errorf("set sync mark %q: %w", key, err)
	}
	return nil
}

// ClearSyncMark removes the value for key. Test and debug operation.
func (s *SQLiteStore) ClearSyncMark(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sync_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("clear sync mark %q: %w", key, err)
	}
	return nil
}
