// Package app runs the pull, plan and apply phases against one store and
// one mailbox, recording every run.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/nhle/imap-dedup/internal/dedup"
	"github.com/nhle/imap-dedup/internal/model"
	"github.com/nhle/imap-dedup/internal/progress"
	"github.com/nhle/imap-dedup/internal/reconcile"
	"github.com/nhle/imap-dedup/internal/remote"
	"github.com/nhle/imap-dedup/internal/report"
	"github.com/nhle/imap-dedup/internal/store"
	"github.com/nhle/imap-dedup/internal/sync"
)

// ErrNoCanonicalFolder is returned when planning without an all-mail folder.
var ErrNoCanonicalFolder = errors.New("all-mail folder is required")

// ErrNoMailbox is returned by phases that need the server when none is
// connected.
var ErrNoMailbox = errors.New("not connected to a mailbox")

// statusRuns is how many runs Status lists.
const statusRuns = 10

// App holds everything a command needs. Mailbox may be nil for commands
// that only read the store.
type App struct {
	Config   *model.AppConfig
	Store    store.Store
	Mailbox  remote.Mailbox
	Log      zerolog.Logger
	Progress progress.Sink
	Out      io.Writer

	puller *sync.Puller
}

// New creates an App.
func New(cfg *model.AppConfig, st store.Store, mb remote.Mailbox, log zerolog.Logger, out io.Writer) *App {
	return &App{
		Config:   cfg,
		Store:    st,
		Mailbox:  mb,
		Log:      log,
		Progress: progress.Nop{},
		Out:      out,
	}
}

// Pull mirrors folders, or every folder when none are given.
func (a *App) Pull(ctx context.Context, folders []string) (sync.PullResult, error) {
	if a.Mailbox == nil {
		return sync.PullResult{}, ErrNoMailbox
	}

	var res sync.PullResult
	err := a.record(ctx, model.PhasePull, func() (int, error) {
		var err error
		res, err = a.getPuller().Pull(ctx, folders)
		return res.Inserted, err
	})
	if err != nil {
		return res, err
	}

	fmt.Fprintln(a.Out, report.PullSummary(res))
	return res, nil
}

// getPuller keeps one Puller per App so its duplicate warning is only
// logged once.
func (a *App) getPuller() *sync.Puller {
	if a.puller == nil {
		p := sync.New(a.Store, a.Mailbox, a.Log)
		p.Progress = a.Progress
		p.BatchSize = a.Config.BatchSize
		p.Retry = sync.RetryPolicy(a.Config.Retry)
		a.puller = p
	}
	return a.puller
}

// FindDuplicates stages deletions for the duplicates held in canonical,
// falling back to the configured all-mail folder.
func (a *App) FindDuplicates(ctx context.Context, canonical string) (dedup.PlanResult, error) {
	if canonical == "" {
		canonical = a.Config.AllMail
	}
	if canonical == "" {
		return dedup.PlanResult{}, ErrNoCanonicalFolder
	}

	d := dedup.NewDetector(a.Store, a.Log)
	d.Progress = a.Progress
	d.CommitEvery = a.Config.Plan.CommitEvery

	var res dedup.PlanResult
	err := a.record(ctx, model.PhasePlan, func() (int, error) {
		var err error
		res, err = d.Plan(ctx, canonical)
		return res.NewlyStaged, err
	})
	if err != nil {
		return res, err
	}

	fmt.Fprintln(a.Out, report.PlanSummary(res))
	return res, nil
}

// PrintDuplicates writes the duplicate report.
func (a *App) PrintDuplicates(ctx context.Context) error {
	entries, err := dedup.BuildReport(ctx, a.Store)
	if err != nil {
		return fmt.Errorf("building duplicate report: %w", err)
	}
	return report.Duplicates(a.Out, entries)
}

// Preview returns the pending deletions as they would be submitted.
func (a *App) Preview(ctx context.Context) ([]reconcile.FolderBatches, error) {
	return a.applier().Preview(ctx)
}

// Deduplicate applies every pending deletion. With dryRun it only prints
// the batches.
func (a *App) Deduplicate(ctx context.Context, dryRun bool) (reconcile.ApplyResult, error) {
	if dryRun {
		plan, err := a.Preview(ctx)
		if err != nil {
			return reconcile.ApplyResult{}, err
		}
		return reconcile.ApplyResult{}, report.Preview(a.Out, plan)
	}

	if a.Mailbox == nil {
		return reconcile.ApplyResult{}, ErrNoMailbox
	}

	applier := a.applier()
	var res reconcile.ApplyResult
	err := a.record(ctx, model.PhaseApply, func() (int, error) {
		var err error
		res, err = applier.Apply(ctx)
		return res.Deleted, err
	})
	if err != nil {
		return res, err
	}

	fmt.Fprintln(a.Out, report.ApplySummary(res))
	return res, nil
}

func (a *App) applier() *reconcile.Applier {
	ap := reconcile.New(a.Store, a.Mailbox, a.Log)
	ap.Progress = a.Progress
	ap.BatchSize = a.Config.BatchSize
	return ap
}

// Status writes store counts and recent runs.
func (a *App) Status(ctx context.Context) error {
	messages, err := a.Store.CountMessages(ctx)
	if err != nil {
		return err
	}
	actions, err := a.Store.CountActions(ctx)
	if err != nil {
		return err
	}
	runs, err := a.Store.LatestRuns(ctx, statusRuns)
	if err != nil {
		return err
	}
	return report.Status(a.Out, messages, actions, runs)
}

// record wraps fn in a run log entry. The entry is closed even when ctx
// was cancelled, so an interrupted run shows up as failed.
func (a *App) record(ctx context.Context, phase model.Phase, fn func() (int, error)) error {
	run, err := a.Store.StartRun(ctx, phase)
	if err != nil {
		return err
	}

	processed, runErr := fn()

	if err := a.Store.FinishRun(context.WithoutCancel(ctx), run.ID, processed, runErr); err != nil {
		a.Log.Warn().Err(err).Str("run", run.ID).Msg("could not record run result")
	}
	if runErr != nil {
		a.Log.Error().Err(runErr).Str("phase", string(phase)).Msg("phase failed")
	}
	return runErr
}
