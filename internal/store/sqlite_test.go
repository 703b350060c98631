package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/imap-dedup/internal/model"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func message(folder string, seq uint32, id string, size int64) model.MessageRecord {
	return model.MessageRecord{
		Folder:    folder,
		Seq:       seq,
		Subject:   model.OptionalString("subject " + id),
		MessageID: model.OptionalString(id),
		Date:      time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Size:      size,
	}
}

func TestInsertMessageIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rec := message("INBOX", 1, "m1", 100)
	res, err := s.InsertMessage(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, InsertResult{Inserted: true}, res)

	rec.Subject = model.OptionalString("changed")
	res, err = s.InsertMessage(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, InsertResult{WasDuplicate: true}, res)

	count, err := s.CountMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	recs, err := s.FindMessagesByIdentity(ctx, "m1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "subject m1", recs[0].SubjectText(), "first insert wins")
	assert.True(t, recs[0].Date.Equal(rec.Date))
	assert.Equal(t, int64(100), recs[0].Size)
}

func TestMessageExists(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.InsertMessage(ctx, message("INBOX", 7, "m1", 10))
	require.NoError(t, err)

	ok, err := s.MessageExists(ctx, "INBOX", 7)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.MessageExists(ctx, "INBOX", 8)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.MessageExists(ctx, "Sent", 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindDuplicateMessageIdentities(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, rec := range []model.MessageRecord{
		message("A", 1, "X", 100),
		message("B", 1, "X", 100),
		message("C", 1, "X", 200),
		message("A", 2, "Y", 5),
		message("B", 2, "Y", 5),
		message("C", 2, "Y", 5),
		message("A", 3, "W", 5),
		message("B", 3, "W", 5),
		message("A", 4, "solo", 1),
	} {
		_, err := s.InsertMessage(ctx, rec)
		require.NoError(t, err)
	}
	// Records without a message-id never group.
	for seq := uint32(10); seq < 12; seq++ {
		rec := message("A", seq, "", 1)
		_, err := s.InsertMessage(ctx, rec)
		require.NoError(t, err)
	}

	groups, err := s.FindDuplicateMessageIdentities(ctx)
	require.NoError(t, err)

	assert.Equal(t, []model.DuplicateGroup{
		{MessageID: "Y", Size: 5, Count: 3},
		{MessageID: "W", Size: 5, Count: 2},
		{MessageID: "X", Size: 100, Count: 2},
	}, groups)

	recs, err := s.FindMessagesByIdentity(ctx, "X")
	require.NoError(t, err)
	require.Len(t, recs, 3, "lookup by identity spans sizes")
	assert.Equal(t, "A", recs[0].Folder)
	assert.Equal(t, "C", recs[2].Folder)
	assert.Equal(t, int64(200), recs[2].Size)
}

func TestStageActionIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	staged, err := s.StageAction(ctx, model.ActionRecord{Folder: "AllMail", Seq: 1, Action: model.ActionDelete})
	require.NoError(t, err)
	assert.True(t, staged)

	staged, err = s.StageAction(ctx, model.ActionRecord{Folder: "AllMail", Seq: 1, Action: model.ActionDelete})
	require.NoError(t, err)
	assert.False(t, staged)

	pending, err := s.FindPendingActions(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, model.ActionDelete, pending[0].Action)
	assert.True(t, pending[0].Pending())
}

func TestFindPendingForMessage(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.StageAction(ctx, model.ActionRecord{Folder: "AllMail", Seq: 2, Action: model.ActionDelete})
	require.NoError(t, err)

	got, err := s.FindPendingForMessage(ctx, "AllMail", 2)
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = s.FindPendingForMessage(ctx, "AllMail", 3)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.MarkCompleted(ctx, "AllMail", 2, model.ActionDelete, time.Now()))
	got, err = s.FindPendingForMessage(ctx, "AllMail", 2)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMarkCompletedIsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.StageAction(ctx, model.ActionRecord{Folder: "AllMail", Seq: 1, Action: model.ActionDelete})
	require.NoError(t, err)

	first := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.MarkCompleted(ctx, "AllMail", 1, model.ActionDelete, first))
	require.NoError(t, s.MarkCompleted(ctx, "AllMail", 1, model.ActionDelete, first.Add(time.Hour)))

	var completedAt time.Time
	require.NoError(t, s.db.Get(&completedAt, "SELECT completed_at FROM actions WHERE folder = 'AllMail' AND seq = 1"))
	assert.True(t, completedAt.Equal(first), "got %v", completedAt)

	counts, err := s.CountActions(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ActionCounts{Pending: 0, Completed: 1}, counts)

	// Unknown targets are tolerated.
	require.NoError(t, s.MarkCompleted(ctx, "AllMail", 99, model.ActionDelete, first))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.InsertMessage(ctx, message("INBOX", 1, "m1", 1)); err != nil {
			return err
		}
		if _, err := tx.StageAction(ctx, model.ActionRecord{Folder: "INBOX", Seq: 1, Action: model.ActionDelete}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	count, err := s.CountMessages(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	counts, err := s.CountActions(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.Pending)
}

func TestWithTxCommits(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx Tx) error {
		for seq := uint32(1); seq <= 3; seq++ {
			if _, err := tx.InsertMessage(ctx, message("INBOX", seq, "m", 1)); err != nil {
				return err
			}
		}
		ok, err := tx.MessageExists(ctx, "INBOX", 2)
		if err != nil {
			return err
		}
		assert.True(t, ok, "writes are visible inside the transaction")
		return nil
	})
	require.NoError(t, err)

	count, err := s.CountMessages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMigrationsAreReentrant(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")

	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	_, err = s.InsertMessage(context.Background(), message("INBOX", 1, "m1", 1))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s.Close()

	var version int
	require.NoError(t, s.db.Get(&version, "SELECT MAX(version) FROM schema_version"))
	assert.Equal(t, len(migrations), version)

	count, err := s.CountMessages(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRunLog(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	pull, err := s.StartRun(ctx, model.PhasePull)
	require.NoError(t, err)
	require.NotEmpty(t, pull.ID)
	require.NoError(t, s.FinishRun(ctx, pull.ID, 52, nil))

	plan, err := s.StartRun(ctx, model.PhasePlan)
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, plan.ID, 0, errors.New("interrupted")))

	assert.Error(t, s.FinishRun(ctx, "missing", 0, nil))

	runs, err := s.LatestRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	byID := map[string]model.RunRecord{}
	for _, r := range runs {
		byID[r.ID] = r
	}
	assert.True(t, byID[pull.ID].Succeeded())
	assert.Equal(t, 52, byID[pull.ID].Processed)
	assert.False(t, byID[plan.ID].Succeeded())
	assert.Equal(t, "interrupted", byID[plan.ID].Error)
}
