// Package reconcile applies the pending actions of the ledger to the
// remote mailbox.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/imap-dedup/internal/batch"
	"github.com/nhle/imap-dedup/internal/model"
	"github.com/nhle/imap-dedup/internal/progress"
	"github.com/nhle/imap-dedup/internal/remote"
	"github.com/nhle/imap-dedup/internal/store"
)

// ErrEmptyBatch is returned if a delete batch has no sequence numbers.
// Batches come from chunking non-empty folders, so this is a bug.
var ErrEmptyBatch = errors.New("refusing to submit an empty delete batch")

// FolderBatches is the delete work planned for one folder.
type FolderBatches struct {
	Folder  string
	Batches [][]uint32
}

// Total returns the number of sequence numbers across all batches.
func (f FolderBatches) Total() int {
	n := 0
	for _, b := range f.Batches {
		n += len(b)
	}
	return n
}

// ApplyResult summarises an apply run.
type ApplyResult struct {
	Folders int
	Batches int
	Deleted int
}

// Applier deletes pending messages folder by folder and expunges each
// folder once all of its batches went through.
type Applier struct {
	Store     store.Store
	Mailbox   remote.Mailbox
	Log       zerolog.Logger
	Progress  progress.Sink
	BatchSize int
	Clock     func() time.Time
}

// New returns an Applier with the default batch size.
func New(st store.Store, mb remote.Mailbox, log zerolog.Logger) *Applier {
	return &Applier{
		Store:     st,
		Mailbox:   mb,
		Log:       log,
		Progress:  progress.Nop{},
		BatchSize: model.DefaultBatchSize,
		Clock:     time.Now,
	}
}

// Preview groups pending deletions by folder, in folder name order, and
// splits each group into batches. It does not touch the remote side.
// Pending actions of other kinds stay pending and are reported once per
// kind.
func (a *Applier) Preview(ctx context.Context) ([]FolderBatches, error) {
	pending, err := a.Store.FindPendingActions(ctx)
	if err != nil {
		return nil, err
	}

	byFolder := make(map[string][]uint32)
	skipped := make(map[model.ActionKind]int)
	for _, act := range pending {
		if act.Action != model.ActionDelete {
			skipped[act.Action]++
			continue
		}
		byFolder[act.Folder] = append(byFolder[act.Folder], act.Seq)
	}

	for kind, n := range skipped {
		a.Log.Warn().Str("action", string(kind)).Int("count", n).Msg("skipping pending actions of unsupported kind")
	}

	folders := make([]string, 0, len(byFolder))
	for folder := range byFolder {
		folders = append(folders, folder)
	}
	sort.Strings(folders)

	plan := make([]FolderBatches, 0, len(folders))
	for _, folder := range folders {
		plan = append(plan, FolderBatches{
			Folder:  folder,
			Batches: batch.Chunk(byFolder[folder], a.BatchSize),
		})
	}
	return plan, nil
}

// Apply runs every pending deletion. An action is marked completed as soon
// as the server confirmed its batch. A failure stops the run; rerunning
// picks up whatever is still pending.
func (a *Applier) Apply(ctx context.Context) (ApplyResult, error) {
	var res ApplyResult

	plan, err := a.Preview(ctx)
	if err != nil {
		return res, err
	}

	for _, fb := range plan {
		deleted, err := a.applyFolder(ctx, fb)
		res.Deleted += deleted
		res.Batches += len(fb.Batches)
		if err != nil {
			return res, err
		}
		res.Folders++
	}

	a.Log.Info().
		Int("folders", res.Folders).
		Int("deleted", res.Deleted).
		Msg("apply finished")
	return res, nil
}

func (a *Applier) applyFolder(ctx context.Context, fb FolderBatches) (int, error) {
	if err := a.Mailbox.SelectFolder(ctx, fb.Folder); err != nil {
		return 0, fmt.Errorf("selecting %s: %w", fb.Folder, err)
	}

	sink := a.Progress
	if sink == nil {
		sink = progress.Nop{}
	}
	sink.Start(fb.Folder, fb.Total())
	defer sink.Finish()

	deleted := 0
	for _, seqs := range fb.Batches {
		if err := a.deleteBatch(ctx, fb.Folder, seqs); err != nil {
			return deleted, err
		}
		deleted += len(seqs)
		sink.Add(len(seqs))
	}

	// Expunging renumbers the folder, so it must wait for every batch.
	if err := a.Mailbox.ExpungeFolder(ctx); err != nil {
		return deleted, fmt.Errorf("expunging %s: %w", fb.Folder, err)
	}

	a.Log.Info().Str("folder", fb.Folder).Int("deleted", deleted).Msg("folder expunged")
	return deleted, nil
}

func (a *Applier) deleteBatch(ctx context.Context, folder string, seqs []uint32) error {
	if len(seqs) == 0 {
		return fmt.Errorf("%s: %w", folder, ErrEmptyBatch)
	}

	if err := a.Mailbox.DeleteMessages(ctx, seqs); err != nil {
		return fmt.Errorf("deleting %d messages from %s: %w", len(seqs), folder, err)
	}

	now := a.now()
	err := a.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, seq := range seqs {
			if err := tx.MarkCompleted(ctx, folder, seq, model.ActionDelete, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("marking %d deletions in %s completed: %w", len(seqs), folder, err)
	}

	a.Log.Debug().Str("folder", folder).Uint32("start_seq", seqs[0]).Int("count", len(seqs)).Msg("batch deleted")
	return nil
}

func (a *Applier) now() time.Time {
	if a.Clock == nil {
		return time.Now()
	}
	return a.Clock()
}
