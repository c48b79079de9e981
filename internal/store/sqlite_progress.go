package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AddXP adds points to the owner's experience total and returns the new
// total. A progress row is created on first award.
func (s *SQLiteStore) AddXP(ctx context.Context, ownerID string, points int) (int, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO player_progress (owner_id, xp, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET xp = xp + excluded.xp, updated_at = excluded.updated_at
	`, ownerID, points, now)
	if err != nil {
		return 0, fmt.Errorf("add xp: %w", err)
	}

	var xp int
	if err := s.db.QueryRowContext(ctx, `SELECT xp FROM player_progress WHERE owner_id = ?`, ownerID).Scan(&xp); err != nil {
		return 0, fmt.Errorf("add xp: read total: %w", err)
	}
	return xp, nil
}

// Progress returns the owner's gamification state. Owners without any
// awards have zero XP.
func (s *SQLiteStore) Progress(ctx context.Context, ownerID string) (PlayerProgress, error) {
	progress := PlayerProgress{OwnerID: ownerID}

	var updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT xp, updated_at FROM player_progress WHERE owner_id = ?
	`, ownerID).Scan(&progress.XP, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return progress, nil
	}
	if err != nil {
		return PlayerProgress{}, fmt.Errorf("read progress: %w", err)
	}

	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		progress.UpdatedAt = t
	}
	return progress, nil
}

// AwardBadge records a badge for the owner. It reports whether the badge
// was newly awarded; re-awarding is a no-op.
func (s *SQLiteStore) AwardBadge(ctx context.Context, ownerID, badgeID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO badges (owner_id, badge_id, awarded_at) VALUES (?, ?, ?)
	`, ownerID, badgeID, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("award badge: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("award badge: rows affected: %w", err)
	}
	return affected > 0, nil
}

// Badges lists the owner's badge ids in award order.
func (s *SQLiteStore) Badges(ctx context.Context, ownerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT badge_id FROM badges WHERE owner_id = ? ORDER BY awarded_at, badge_id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	defer rows.Close()

	var badges []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list badges: %w", err)
		}
		badges = append(badges, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	return badges, nil
}
