package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nhle/imap-dedup/internal/model"
)

// InsertMessage stores rec unless a record for (folder, seq) already
// exists, in which case nothing changes and WasDuplicate is reported.
func (q queries) InsertMessage(
	ctx context.Context,
	rec model.MessageRecord,
) (InsertResult, error) {
	res, err := q.ext.ExecContext(ctx, `
		INSERT INTO messages (folder, seq, subject, message_id, date, size)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(folder, seq) DO NOTHING`,
		rec.Folder, rec.Seq, rec.Subject, rec.MessageID, rec.Date.UTC(), rec.Size,
	)
	if err != nil {
		return InsertResult{}, fmt.Errorf("inserting message %s/%d: %w", rec.Folder, rec.Seq, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return InsertResult{}, fmt.Errorf("reading rows affected for %s/%d: %w", rec.Folder, rec.Seq, err)
	}

	return InsertResult{Inserted: n > 0, WasDuplicate: n == 0}, nil
}

// MessageExists reports whether metadata for (folder, seq) is stored.
func (q queries) MessageExists(
	ctx context.Context,
	folder string,
	seq uint32,
) (bool, error) {
	var count int
	err := sqlx.GetContext(ctx, q.ext, &count,
		"SELECT COUNT(*) FROM messages WHERE folder = ? AND seq = ?",
		folder, seq,
	)
	if err != nil {
		return false, fmt.Errorf("checking message %s/%d: %w", folder, seq, err)
	}
	return count > 0, nil
}

// FindDuplicateMessageIdentities returns every (message_id, size) pair
// held by more than one record. Order is stable: group size descending,
// then message-id, then size.
func (q queries) FindDuplicateMessageIdentities(
	ctx context.Context,
) ([]model.DuplicateGroup, error) {
	var groups []model.DuplicateGroup
	err := sqlx.SelectContext(ctx, q.ext, &groups, `
		SELECT message_id, size, COUNT(*) AS cnt
		FROM messages
		WHERE message_id IS NOT NULL
		GROUP BY message_id, size
		HAVING COUNT(*) > 1
		ORDER BY cnt DESC, message_id ASC, size ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying duplicate identities: %w", err)
	}
	return groups, nil
}

// FindMessagesByIdentity returns all records with the given message-id,
// regardless of folder or size.
func (q queries) FindMessagesByIdentity(
	ctx context.Context,
	messageID string,
) ([]model.MessageRecord, error) {
	var recs []model.MessageRecord
	err := sqlx.SelectContext(ctx, q.ext, &recs, `
		SELECT folder, seq, subject, message_id, date, size
		FROM messages
		WHERE message_id = ?
		ORDER BY folder, seq`, messageID)
	if err != nil {
		return nil, fmt.Errorf("querying messages with id %q: %w", messageID, err)
	}
	return recs, nil
}

// CountMessages returns the number of mirrored records.
func (s *SQLiteStore) CountMessages(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM messages"); err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return count, nil
}
