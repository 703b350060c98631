package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/imap-dedup/internal/model"
)

// StartRun records the beginning of a phase and returns it with a fresh ID.
func (s *SQLiteStore) StartRun(
	ctx context.Context,
	phase model.Phase,
) (model.RunRecord, error) {
	run := model.RunRecord{
		ID:        uuid.New().String(),
		Phase:     phase,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO runs (id, phase, started_at) VALUES (?, ?, ?)",
		run.ID, string(run.Phase), run.StartedAt,
	)
	if err != nil {
		return model.RunRecord{}, fmt.Errorf("starting %s run: %w", phase, err)
	}
	return run, nil
}

// FinishRun stamps a run as finished. A non-nil runErr is kept as text.
func (s *SQLiteStore) FinishRun(
	ctx context.Context,
	id string,
	processed int,
	runErr error,
) error {
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE runs SET finished_at = ?, processed = ?, error = ? WHERE id = ?",
		time.Now().UTC(), processed, errText, id,
	)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// LatestRuns returns up to limit runs, newest first.
func (s *SQLiteStore) LatestRuns(
	ctx context.Context,
	limit int,
) ([]model.RunRecord, error) {
	if limit < 1 {
		limit = 10
	}

	var runs []model.RunRecord
	err := s.db.SelectContext(ctx, &runs, `
		SELECT id, phase, started_at, finished_at, processed, error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	return runs, nil
}
