package model

import "time"

// MessageRecord is the metadata of one message as it appeared in a folder
// snapshot. Seq is only meaningful relative to the pull that produced it.
type MessageRecord struct {
	Folder    string    `json:"folder" db:"folder"`
	Seq       uint32    `json:"seq" db:"seq"`
	Subject   *string   `json:"subject,omitempty" db:"subject"`
	MessageID *string   `json:"message_id,omitempty" db:"message_id"`
	Date      time.Time `json:"date" db:"date"`
	Size      int64     `json:"size" db:"size"`
}

// SubjectText returns the subject or an empty string when the envelope
// carried none.
func (m MessageRecord) SubjectText() string {
	if m.Subject == nil {
		return ""
	}
	return *m.Subject
}

// DuplicateGroup is a message identity (message-id plus byte size) that
// occurs more than once across all folders.
type DuplicateGroup struct {
	MessageID string `json:"message_id" db:"message_id"`
	Size      int64  `json:"size" db:"size"`
	Count     int    `json:"count" db:"cnt"`
}

// OptionalString maps an empty string to nil.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
