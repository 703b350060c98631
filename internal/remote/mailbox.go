// Package remote describes the mailbox capabilities the sync engine
// consumes. Implementations own the wire protocol; callers only see
// folders, snapshot sequence numbers and structured fetch results.
package remote

import (
	"context"
	"time"
)

// FetchField is a metadata item requested from the server.
type FetchField string

const (
	FieldEnvelope     FetchField = "ENVELOPE"
	FieldInternalDate FetchField = "INTERNALDATE"
	FieldSize         FetchField = "RFC822.SIZE"
)

// MetadataFields are the items needed to build a message record.
var MetadataFields = []FetchField{FieldEnvelope, FieldInternalDate, FieldSize}

// Envelope holds the envelope parts the engine keeps. Empty strings mean
// the header was absent.
type Envelope struct {
	Subject   string
	MessageID string
}

// FetchedMessage is one message from a metadata fetch. A nil field means the
// server did not return that item.
type FetchedMessage struct {
	Seq          uint32
	Envelope     *Envelope
	InternalDate *time.Time
	Size         *int64
}

// Missing returns the requested fields this message lacks.
func (m FetchedMessage) Missing(fields []FetchField) []FetchField {
	var missing []FetchField
	for _, f := range fields {
		switch f {
		case FieldEnvelope:
			if m.Envelope == nil {
				missing = append(missing, f)
			}
		case FieldInternalDate:
			if m.InternalDate == nil {
				missing = append(missing, f)
			}
		case FieldSize:
			if m.Size == nil {
				missing = append(missing, f)
			}
		}
	}
	return missing
}

// Mailbox is the remote capability set. Sequence-number operations apply to
// the currently selected folder.
type Mailbox interface {
	ListFolders(ctx context.Context) ([]string, error)
	SelectFolder(ctx context.Context, name string) error

	// ListSequenceNumbers returns the current snapshot of the selected
	// folder.
	ListSequenceNumbers(ctx context.Context) ([]uint32, error)

	// FetchMetadata fetches fields for seqs. Messages are returned even when
	// some fields are missing; judging the response is up to the caller.
	FetchMetadata(ctx context.Context, seqs []uint32, fields []FetchField) ([]FetchedMessage, error)

	// DeleteMessages marks seqs deleted. They disappear on ExpungeFolder.
	DeleteMessages(ctx context.Context, seqs []uint32) error
	ExpungeFolder(ctx context.Context) error
}
