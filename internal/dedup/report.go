package dedup

import (
	"context"

	"github.com/nhle/imap-dedup/internal/model"
	"github.com/nhle/imap-dedup/internal/store"
)

// Copy is one stored copy of a duplicated message and what the ledger
// says will happen to it.
type Copy struct {
	Folder string
	Seq    uint32
	Size   int64
	Status model.ActionKind
}

// ReportEntry describes one duplicate group.
type ReportEntry struct {
	MessageID string
	Subject   string
	Size      int64
	Copies    []Copy
}

// Reader is the part of the store a report needs.
type Reader interface {
	store.MessageReader
	FindPendingForMessage(ctx context.Context, folder string, seq uint32) ([]model.ActionRecord, error)
}

// BuildReport lists every duplicate group in detection order. A copy with a
// pending action shows that action; anything else is KEEP.
func BuildReport(ctx context.Context, r Reader) ([]ReportEntry, error) {
	groups, err := r.FindDuplicateMessageIdentities(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]ReportEntry, 0, len(groups))
	for _, g := range groups {
		recs, err := r.FindMessagesByIdentity(ctx, g.MessageID)
		if err != nil {
			return nil, err
		}

		entry := ReportEntry{MessageID: g.MessageID, Size: g.Size}
		if len(recs) > 0 {
			entry.Subject = recs[0].SubjectText()
		}

		for _, rec := range recs {
			pending, err := r.FindPendingForMessage(ctx, rec.Folder, rec.Seq)
			if err != nil {
				return nil, err
			}

			status := model.ActionKeep
			if len(pending) > 0 {
				status = pending[0].Action
			}
			entry.Copies = append(entry.Copies, Copy{
				Folder: rec.Folder,
				Seq:    rec.Seq,
				Size:   rec.Size,
				Status: status,
			})
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
