package store

import (
	"context"
	"time"

	"github.com/nhle/imap-dedup/internal/model"
)

// InsertResult reports what happened to a message insert. A collision on
// (folder, seq) is not an error: the existing row wins and WasDuplicate is
// set so the caller can decide whether to say anything about it.
type InsertResult struct {
	Inserted     bool
	WasDuplicate bool
}

// MessageReader answers questions about mirrored message metadata.
type MessageReader interface {
	MessageExists(ctx context.Context, folder string, seq uint32) (bool, error)

	// FindDuplicateMessageIdentities groups records with a message-id by
	// (message_id, size) and returns every group with more than one
	// member, largest first, then by message-id.
	FindDuplicateMessageIdentities(ctx context.Context) ([]model.DuplicateGroup, error)

	// FindMessagesByIdentity returns every record sharing messageID across
	// all folders and sizes.
	FindMessagesByIdentity(ctx context.Context, messageID string) ([]model.MessageRecord, error)
}

// MessageWriter mirrors message metadata.
type MessageWriter interface {
	InsertMessage(ctx context.Context, rec model.MessageRecord) (InsertResult, error)
}

// ActionLedger stages actions once per (folder, seq) and tracks completion.
type ActionLedger interface {
	// StageAction inserts a pending action. It returns false when an action
	// for the same (folder, seq) already exists.
	StageAction(ctx context.Context, rec model.ActionRecord) (bool, error)
	FindPendingActions(ctx context.Context) ([]model.ActionRecord, error)
	FindPendingForMessage(ctx context.Context, folder string, seq uint32) ([]model.ActionRecord, error)

	// MarkCompleted sets completed_at on a pending action. Marking an
	// already completed action again leaves its timestamp untouched.
	MarkCompleted(ctx context.Context, folder string, seq uint32, kind model.ActionKind, at time.Time) error
}

// Tx is the set of operations available inside one transaction.
type Tx interface {
	MessageReader
	MessageWriter
	ActionLedger
}

// RunLog records phase executions.
type RunLog interface {
	StartRun(ctx context.Context, phase model.Phase) (model.RunRecord, error)
	FinishRun(ctx context.Context, id string, processed int, runErr error) error
	LatestRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
}

// Store is the local durable state: mirrored metadata, the action ledger
// and the run log. Calls made directly on a Store autocommit; WithTx groups
// writes so they become visible together or not at all.
type Store interface {
	Tx
	RunLog

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise. fn must only use the Tx it is given.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	CountMessages(ctx context.Context) (int, error)
	CountActions(ctx context.Context) (model.ActionCounts, error)
	Close() error
}
