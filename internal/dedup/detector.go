// Package dedup finds duplicated messages and stages deletions for the
// copies held in the canonical folder.
package dedup

import (
	"context"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/nhle/imap-dedup/internal/batch"
	"github.com/nhle/imap-dedup/internal/model"
	"github.com/nhle/imap-dedup/internal/progress"
	"github.com/nhle/imap-dedup/internal/store"
)

// DefaultCommitEvery is the number of duplicate groups staged per
// transaction.
const DefaultCommitEvery = 100

// PlanResult holds the totals of one planning run.
type PlanResult struct {
	// Groups is the number of duplicated (message-id, size) pairs.
	Groups int
	// Deletions counts canonical-folder copies targeted for deletion,
	// including ones staged by an earlier run.
	Deletions int
	// NewlyStaged counts actions this run added to the ledger.
	NewlyStaged int
	// BytesReclaimable is the total size of the targeted copies.
	BytesReclaimable int64
}

// Detector stages a DELETE for every canonical-folder copy of a duplicated
// message.
type Detector struct {
	Store       store.Store
	Log         zerolog.Logger
	Progress    progress.Sink
	CommitEvery int
}

// NewDetector returns a Detector committing every DefaultCommitEvery groups.
func NewDetector(st store.Store, log zerolog.Logger) *Detector {
	return &Detector{
		Store:       st,
		Log:         log,
		Progress:    progress.Nop{},
		CommitEvery: DefaultCommitEvery,
	}
}

type messageKey struct {
	folder string
	seq    uint32
}

// Plan scans every duplicate group and stages deletions in canonical. Each
// batch of CommitEvery groups commits on its own, so an interrupted plan
// keeps what it staged and a rerun only adds what is missing.
//
// Every copy in canonical is staged, even when canonical holds all copies
// of a message.
func (d *Detector) Plan(ctx context.Context, canonical string) (PlanResult, error) {
	var res PlanResult

	groups, err := d.Store.FindDuplicateMessageIdentities(ctx)
	if err != nil {
		return res, err
	}
	res.Groups = len(groups)

	d.Log.Info().Str("folder", canonical).Int("groups", len(groups)).Msg("staging deletions")

	sink := d.Progress
	if sink == nil {
		sink = progress.Nop{}
	}
	sink.Start("duplicates", len(groups))
	defer sink.Finish()

	// An id split across sizes forms several groups that share records.
	seen := make(map[messageKey]bool)

	for _, part := range batch.Chunk(groups, d.CommitEvery) {
		var (
			step    PlanResult
			touched []messageKey
		)
		err := d.Store.WithTx(ctx, func(tx store.Tx) error {
			for _, g := range part {
				recs, err := tx.FindMessagesByIdentity(ctx, g.MessageID)
				if err != nil {
					return err
				}

				for _, rec := range recs {
					key := messageKey{folder: rec.Folder, seq: rec.Seq}
					if rec.Folder != canonical || seen[key] || slices.Contains(touched, key) {
						continue
					}
					touched = append(touched, key)

					staged, err := tx.StageAction(ctx, model.ActionRecord{
						Folder: rec.Folder,
						Seq:    rec.Seq,
						Action: model.ActionDelete,
					})
					if err != nil {
						return err
					}

					step.Deletions++
					step.BytesReclaimable += rec.Size
					if staged {
						step.NewlyStaged++
					}
				}
			}
			return nil
		})
		if err != nil {
			return res, fmt.Errorf("staging deletions in %s: %w", canonical, err)
		}

		for _, key := range touched {
			seen[key] = true
		}
		res.Deletions += step.Deletions
		res.NewlyStaged += step.NewlyStaged
		res.BytesReclaimable += step.BytesReclaimable
		sink.Add(len(part))
	}

	d.Log.Info().
		Int("groups", res.Groups).
		Int("deletions", res.Deletions).
		Int("newly_staged", res.NewlyStaged).
		Int64("bytes", res.BytesReclaimable).
		Msg("plan finished")
	return res, nil
}
