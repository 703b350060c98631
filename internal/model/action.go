package model

import "time"

// ActionKind identifies what should happen to a message.
type ActionKind string

// Action kinds. Stored as text so new kinds need no schema change.
const (
	ActionDelete ActionKind = "DELETE"
)

// ActionKeep is not stored; reports use it for copies with no pending action.
const ActionKeep ActionKind = "KEEP"

// ActionRecord is a staged mutation against the message at (Folder, Seq).
// A nil CompletedAt means the action is still pending.
type ActionRecord struct {
	Folder      string     `json:"folder" db:"folder"`
	Seq         uint32     `json:"seq" db:"seq"`
	Action      ActionKind `json:"action" db:"action"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// Pending reports whether the action has not been applied yet.
func (a ActionRecord) Pending() bool {
	return a.CompletedAt == nil
}

// ActionCounts summarises the ledger.
type ActionCounts struct {
	Pending   int `db:"pending"`
	Completed int `db:"completed"`
}
