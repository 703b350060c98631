package model

import "time"

// Phase names one of the independently re-runnable stages.
type Phase string

const (
	PhasePull  Phase = "pull"
	PhasePlan  Phase = "plan"
	PhaseApply Phase = "apply"
)

// RunRecord is one execution of a phase.
type RunRecord struct {
	ID         string     `json:"id" db:"id"`
	Phase      Phase      `json:"phase" db:"phase"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	Processed  int        `json:"processed" db:"processed"`
	Error      string     `json:"error,omitempty" db:"error"`
}

// Succeeded reports whether the run finished without an error.
func (r RunRecord) Succeeded() bool {
	return r.FinishedAt != nil && r.Error == ""
}
