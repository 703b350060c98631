package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/imap-dedup/internal/model"
)

// StageAction records a pending action for (folder, seq). Staging is
// idempotent: an existing row, pending or completed, is left alone.
func (q queries) StageAction(
	ctx context.Context,
	rec model.ActionRecord,
) (bool, error) {
	res, err := q.ext.ExecContext(ctx, `
		INSERT INTO actions (folder, seq, action)
		VALUES (?, ?, ?)
		ON CONFLICT(folder, seq) DO NOTHING`,
		rec.Folder, rec.Seq, string(rec.Action),
	)
	if err != nil {
		return false, fmt.Errorf("staging %s for %s/%d: %w", rec.Action, rec.Folder, rec.Seq, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected for %s/%d: %w", rec.Folder, rec.Seq, err)
	}
	return n > 0, nil
}

// FindPendingActions returns all actions without a completion time,
// ordered by folder and sequence number.
func (q queries) FindPendingActions(
	ctx context.Context,
) ([]model.ActionRecord, error) {
	var recs []model.ActionRecord
	err := sqlx.SelectContext(ctx, q.ext, &recs, `
		SELECT folder, seq, action, completed_at
		FROM actions
		WHERE completed_at IS NULL
		ORDER BY folder, seq`)
	if err != nil {
		return nil, fmt.Errorf("querying pending actions: %w", err)
	}
	return recs, nil
}

// FindPendingForMessage returns the pending actions targeting (folder, seq).
func (q queries) FindPendingForMessage(
	ctx context.Context,
	folder string,
	seq uint32,
) ([]model.ActionRecord, error) {
	var recs []model.ActionRecord
	err := sqlx.SelectContext(ctx, q.ext, &recs, `
		SELECT folder, seq, action, completed_at
		FROM actions
		WHERE folder = ? AND seq = ? AND completed_at IS NULL`,
		folder, seq,
	)
	if err != nil {
		return nil, fmt.Errorf("querying pending actions for %s/%d: %w", folder, seq, err)
	}
	return recs, nil
}

// MarkCompleted stamps a pending action as applied. Completed actions are
// never moved back or re-stamped, so repeating the call is harmless.
func (q queries) MarkCompleted(
	ctx context.Context,
	folder string,
	seq uint32,
	kind model.ActionKind,
	at time.Time,
) error {
	_, err := q.ext.ExecContext(ctx, `
		UPDATE actions SET completed_at = ?
		WHERE folder = ? AND seq = ? AND action = ? AND completed_at IS NULL`,
		at.UTC(), folder, seq, string(kind),
	)
	if err != nil {
		return fmt.Errorf("marking %s completed for %s/%d: %w", kind, folder, seq, err)
	}
	return nil
}

// CountActions returns how many actions are pending and completed.
func (s *SQLiteStore) CountActions(ctx context.Context) (model.ActionCounts, error) {
	var counts model.ActionCounts
	err := s.db.GetContext(ctx, &counts, `
		SELECT
			COALESCE(SUM(CASE WHEN completed_at IS NULL THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN completed_at IS NOT NULL THEN 1 ELSE 0 END), 0) AS completed
		FROM actions`)
	if err != nil {
		return model.ActionCounts{}, fmt.Errorf("counting actions: %w", err)
	}
	return counts, nil
}
