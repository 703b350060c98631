// Package sync mirrors remote message metadata into the local store.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/imap-dedup/internal/batch"
	"github.com/nhle/imap-dedup/internal/model"
	"github.com/nhle/imap-dedup/internal/progress"
	"github.com/nhle/imap-dedup/internal/remote"
	"github.com/nhle/imap-dedup/internal/retry"
	"github.com/nhle/imap-dedup/internal/store"
)

// FolderResult summarises the pull of one folder.
type FolderResult struct {
	Folder   string
	Seen     int
	Inserted int
}

// PullResult summarises a whole pull.
type PullResult struct {
	Folders  []FolderResult
	Seen     int
	Inserted int
}

// Puller copies metadata for every message it has not seen yet. It is not
// safe for concurrent use.
type Puller struct {
	Store     store.Store
	Mailbox   remote.Mailbox
	Log       zerolog.Logger
	Progress  progress.Sink
	BatchSize int
	Retry     retry.Policy

	warnedDuplicate bool
}

// New creates a Puller with the default batch size and retry policy.
func New(st store.Store, mb remote.Mailbox, log zerolog.Logger) *Puller {
	return &Puller{
		Store:     st,
		Mailbox:   mb,
		Log:       log,
		Progress:  progress.Nop{},
		BatchSize: model.DefaultBatchSize,
		Retry:     RetryPolicy(model.DefaultAppConfig().Retry),
	}
}

// RetryPolicy builds the chunk retry policy from cfg. Only bad fetches are
// retried.
func RetryPolicy(cfg model.RetryConfig) retry.Policy {
	return retry.Policy{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.InitialDelay,
		MaxDelay:     cfg.MaxDelay,
		Multiplier:   cfg.Multiplier,
		Retryable:    IsBadFetch,
	}
}

// Pull mirrors the given folders, or every folder when none are named.
// Folders are processed one after another; the first failure stops the
// pull with everything before it committed.
func (p *Puller) Pull(ctx context.Context, folders []string) (PullResult, error) {
	var res PullResult

	if len(folders) == 0 {
		listed, err := p.Mailbox.ListFolders(ctx)
		if err != nil {
			return res, fmt.Errorf("listing folders: %w", err)
		}
		folders = listed
	}

	for _, folder := range folders {
		fr, err := p.PullFolder(ctx, folder)
		res.Folders = append(res.Folders, fr)
		res.Seen += fr.Seen
		res.Inserted += fr.Inserted
		if err != nil {
			return res, err
		}
	}

	p.Log.Info().
		Int("folders", len(res.Folders)).
		Int("seen", res.Seen).
		Int("inserted", res.Inserted).
		Msg("pull finished")
	return res, nil
}

// PullFolder mirrors one folder in chunks of BatchSize.
func (p *Puller) PullFolder(ctx context.Context, folder string) (FolderResult, error) {
	res := FolderResult{Folder: folder}

	if err := p.Mailbox.SelectFolder(ctx, folder); err != nil {
		return res, fmt.Errorf("selecting %s: %w", folder, err)
	}

	seqs, err := p.Mailbox.ListSequenceNumbers(ctx)
	if err != nil {
		return res, fmt.Errorf("listing messages in %s: %w", folder, err)
	}
	res.Seen = len(seqs)

	p.Log.Debug().Str("folder", folder).Int("messages", len(seqs)).Msg("processing folder")

	sink := p.sink()
	sink.Start(folder, len(seqs))
	defer sink.Finish()

	for _, chunk := range batch.Chunk(seqs, p.BatchSize) {
		inserted, err := p.loadWithRetry(ctx, folder, chunk)
		if err != nil {
			return res, err
		}
		res.Inserted += inserted
		sink.Add(len(chunk))
	}
	return res, nil
}

func (p *Puller) loadWithRetry(ctx context.Context, folder string, chunk []uint32) (int, error) {
	policy := p.Retry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		p.Log.Warn().
			Err(err).
			Str("folder", folder).
			Uint32("start_seq", chunk[0]).
			Int("attempt", attempt).
			Dur("backoff", delay).
			Msg("bad fetch, retrying chunk")
	}

	var inserted int
	attempts, err := retry.Do(ctx, policy, func() error {
		n, err := p.LoadChunk(ctx, folder, chunk)
		inserted = n
		return err
	})
	if err != nil {
		return 0, &ChunkFailedError{Folder: folder, StartSeq: chunk[0], Attempts: attempts, Err: err}
	}
	return inserted, nil
}

// LoadChunk fetches and stores the seqs of folder that are not mirrored
// yet, returning how many records were inserted. The inserts commit
// together; a BadFetchError leaves the store untouched. Messages the
// server leaves out of its response are skipped.
func (p *Puller) LoadChunk(ctx context.Context, folder string, seqs []uint32) (int, error) {
	todo, err := p.unknown(ctx, folder, seqs)
	if err != nil {
		return 0, err
	}
	if len(todo) == 0 {
		return 0, nil
	}

	fetched, err := p.Mailbox.FetchMetadata(ctx, todo, remote.MetadataFields)
	if err != nil {
		return 0, fmt.Errorf("fetching metadata in %s: %w", folder, err)
	}

	inserted := 0
	var duplicate *model.MessageRecord
	err = p.Store.WithTx(ctx, func(tx store.Tx) error {
		for _, fm := range fetched {
			rec, err := buildRecord(folder, fm)
			if err != nil {
				return err
			}

			res, err := tx.InsertMessage(ctx, rec)
			if err != nil {
				return err
			}
			if res.Inserted {
				inserted++
			}
			if res.WasDuplicate && duplicate == nil {
				duplicate = &rec
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if duplicate != nil && !p.warnedDuplicate {
		p.warnedDuplicate = true
		p.Log.Warn().
			Str("folder", duplicate.Folder).
			Uint32("seq", duplicate.Seq).
			Msg("message already mirrored, ignoring repeated records")
	}
	return inserted, nil
}

// unknown returns the seqs without a stored record, in order.
func (p *Puller) unknown(ctx context.Context, folder string, seqs []uint32) ([]uint32, error) {
	var todo []uint32
	for _, seq := range seqs {
		ok, err := p.Store.MessageExists(ctx, folder, seq)
		if err != nil {
			return nil, err
		}
		if !ok {
			todo = append(todo, seq)
		}
	}
	return todo, nil
}

func (p *Puller) sink() progress.Sink {
	if p.Progress == nil {
		return progress.Nop{}
	}
	return p.Progress
}

func buildRecord(folder string, fm remote.FetchedMessage) (model.MessageRecord, error) {
	if missing := fm.Missing(remote.MetadataFields); len(missing) > 0 {
		return model.MessageRecord{}, &BadFetchError{Folder: folder, Seq: fm.Seq, Missing: missing}
	}

	return model.MessageRecord{
		Folder:    folder,
		Seq:       fm.Seq,
		Subject:   model.OptionalString(fm.Envelope.Subject),
		MessageID: model.OptionalString(fm.Envelope.MessageID),
		Date:      *fm.InternalDate,
		Size:      *fm.Size,
	}, nil
}
