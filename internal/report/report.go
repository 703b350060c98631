// Package report renders duplicate reports, plans and status for the
// terminal.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/nhle/imap-dedup/internal/dedup"
	"github.com/nhle/imap-dedup/internal/model"
	"github.com/nhle/imap-dedup/internal/reconcile"
	"github.com/nhle/imap-dedup/internal/sync"
	"github.com/nhle/imap-dedup/internal/theme"
)

const maxSubject = 60

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return theme.HeaderStyle
			}
			return theme.CellStyle
		}).
		Headers(headers...)
}

// Duplicates writes one row per duplicate group: the subject and, per copy,
// "folder : ACTION".
func Duplicates(w io.Writer, entries []dedup.ReportEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No duplicate messages found.")
		return err
	}

	t := newTable("Subject", "Size", "Folders")
	for _, e := range entries {
		lines := make([]string, 0, len(e.Copies))
		for _, c := range e.Copies {
			lines = append(lines, fmt.Sprintf("%s : %s",
				c.Folder, theme.ActionStyle(string(c.Status)).Render(string(c.Status))))
		}
		t.Row(
			truncate(subjectOrID(e), maxSubject),
			humanize.Bytes(uint64(e.Size)),
			strings.Join(lines, "\n"),
		)
	}

	_, err := fmt.Fprintln(w, t.String())
	return err
}

// PlanSummary is the one-line outcome of a plan.
func PlanSummary(res dedup.PlanResult) string {
	return fmt.Sprintf(
		"Found %d duplicate messages, will perform %d deletions (%d new) saving %s of space",
		res.Groups, res.Deletions, res.NewlyStaged, humanize.Bytes(uint64(res.BytesReclaimable)),
	)
}

// PullSummary is the one-line outcome of a pull.
func PullSummary(res sync.PullResult) string {
	return fmt.Sprintf("Pulled %d folders: %d messages seen, %d new",
		len(res.Folders), res.Seen, res.Inserted)
}

// ApplySummary is the one-line outcome of an apply.
func ApplySummary(res reconcile.ApplyResult) string {
	return fmt.Sprintf("Deleted %d messages in %d batches across %d folders",
		res.Deleted, res.Batches, res.Folders)
}

// Preview writes the batches a deduplicate run would submit.
func Preview(w io.Writer, plan []reconcile.FolderBatches) error {
	if len(plan) == 0 {
		_, err := fmt.Fprintln(w, "Nothing to delete.")
		return err
	}

	t := newTable("Folder", "Batches", "Messages", "First seqs")
	total := 0
	for _, fb := range plan {
		total += fb.Total()
		t.Row(
			fb.Folder,
			fmt.Sprint(len(fb.Batches)),
			fmt.Sprint(fb.Total()),
			firstSeqs(fb),
		)
	}

	if _, err := fmt.Fprintln(w, t.String()); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, theme.WarningStyle.Render(
		fmt.Sprintf("%d messages will be deleted and their folders expunged", total)))
	return err
}

// Status writes store counts and the most recent runs.
func Status(w io.Writer, messages int, actions model.ActionCounts, runs []model.RunRecord) error {
	fmt.Fprintf(w, "Messages mirrored: %d\n", messages)
	fmt.Fprintf(w, "Pending actions:   %d\n", actions.Pending)
	fmt.Fprintf(w, "Completed actions: %d\n", actions.Completed)

	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, theme.MutedStyle.Render("No runs recorded yet."))
		return err
	}

	t := newTable("Phase", "Started", "Duration", "Processed", "Result")
	for _, r := range runs {
		t.Row(
			string(r.Phase),
			r.StartedAt.Local().Format(time.DateTime),
			duration(r),
			fmt.Sprint(r.Processed),
			theme.RunStyle(r.Succeeded(), r.FinishedAt != nil).Render(outcome(r)),
		)
	}
	_, err := fmt.Fprintln(w, t.String())
	return err
}

func outcome(r model.RunRecord) string {
	switch {
	case r.FinishedAt == nil:
		return "running"
	case r.Succeeded():
		return "ok"
	default:
		return r.Error
	}
}

func duration(r model.RunRecord) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()
}

func firstSeqs(fb reconcile.FolderBatches) string {
	if len(fb.Batches) == 0 {
		return ""
	}
	first := fb.Batches[0]
	parts := make([]string, 0, 5)
	for i, seq := range first {
		if i == 5 {
			parts = append(parts, "…")
			break
		}
		parts = append(parts, fmt.Sprint(seq))
	}
	return strings.Join(parts, ", ")
}

func subjectOrID(e dedup.ReportEntry) string {
	if e.Subject != "" {
		return e.Subject
	}
	return e.MessageID
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
