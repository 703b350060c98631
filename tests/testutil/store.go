// Package testutil holds fakes and fixtures shared by package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/nhle/imap-dedup/internal/model"
	"github.com/nhle/imap-dedup/internal/store"
)

// NewTestStore creates an in-memory SQLiteStore with all migrations applied.
// It automatically closes the store when the test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// SeedMessages inserts recs as if they had been pulled.
func SeedMessages(t *testing.T, st store.Store, recs ...model.MessageRecord) {
	t.Helper()

	for _, rec := range recs {
		if _, err := st.InsertMessage(context.Background(), rec); err != nil {
			t.Fatalf("seeding %s/%d: %v", rec.Folder, rec.Seq, err)
		}
	}
}

// StageDeletes stages a pending DELETE for each seq in folder.
func StageDeletes(t *testing.T, st store.Store, folder string, seqs ...uint32) {
	t.Helper()

	for _, seq := range seqs {
		_, err := st.StageAction(context.Background(), model.ActionRecord{
			Folder: folder,
			Seq:    seq,
			Action: model.ActionDelete,
		})
		if err != nil {
			t.Fatalf("staging %s/%d: %v", folder, seq, err)
		}
	}
}
