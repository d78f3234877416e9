// Package job owns the collection-and-analysis run lifecycle: the state
// machine, the single-active-job store, the append-only item log, and the
// resumable event stream observers consume.
package job

import (
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/risk-sentinel/internal/types"
)

// Status is a job's lifecycle state.
type Status string

// Job statuses. PENDING -> COLLECTING -> ANALYZING -> COMPLETED is the happy
// path; any non-terminal status may move to CANCELLED or FAILED. Terminal
// statuses have no outgoing transitions.
const (
	StatusPending    Status = "PENDING"
	StatusCollecting Status = "COLLECTING"
	StatusAnalyzing  Status = "ANALYZING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// Terminal reports whether the status has no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Params are the caller-supplied parameters of one run.
type Params struct {
	// Sources are collection source ids to fetch from.
	Sources []string `json:"sources"`
	// Limit caps items fetched per source.
	Limit int `json:"limit"`
	// Keywords narrow collection (optional).
	Keywords []string `json:"keywords,omitempty"`
	// TimeWindow is a source-interpreted collection hint (optional).
	TimeWindow string `json:"time_window,omitempty"`
	// UseOracle enables oracle enrichment for this run.
	UseOracle bool `json:"use_oracle"`
	// ForceOracle consults the oracle even outside the triage band.
	ForceOracle bool `json:"force_oracle"`
}

// Summary aggregates a finished (or partially finished) run.
type Summary struct {
	TotalItems  int                     `json:"total_items"`
	ByLevel     map[types.RiskLevel]int `json:"by_level"`
	OracleUsed  int                     `json:"oracle_used"`
	HighRiskPct float64                 `json:"high_risk_pct"`
	BySource    map[string]int          `json:"by_source"`
	StartedAt   time.Time               `json:"started_at"`
	CompletedAt time.Time               `json:"completed_at"`
}

// Job is one collection+analysis run. All fields are mutated only through
// Store methods under the store lock; code outside this package sees
// immutable Snapshots.
type Job struct {
	id         uuid.UUID
	status     Status
	params     Params
	items      []types.ItemResult
	summary    *Summary
	err        string
	createdAt  time.Time
	updatedAt  time.Time
	dispatcher *Dispatcher
}

// ID returns the job's id.
func (j *Job) ID() uuid.UUID { return j.id }

// Dispatcher returns the job's event stream dispatcher.
func (j *Job) Dispatcher() *Dispatcher { return j.dispatcher }

// Snapshot is a consistent, caller-owned view of a job.
type Snapshot struct {
	ID        uuid.UUID          `json:"id"`
	Status    Status             `json:"status"`
	Params    Params             `json:"params"`
	Items     []types.ItemResult `json:"items,omitempty"`
	Summary   *Summary           `json:"summary,omitempty"`
	Error     string             `json:"error,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// snapshotLocked builds a Snapshot. Caller must hold the store lock.
func (j *Job) snapshotLocked(withItems bool) Snapshot {
	snap := Snapshot{
		ID:        j.id,
		Status:    j.status,
		Params:    j.params,
		Error:     j.err,
		CreatedAt: j.createdAt,
		UpdatedAt: j.updatedAt,
	}
	if j.summary != nil {
		s := *j.summary
		snap.Summary = &s
	}
	if withItems {
		snap.Items = make([]types.ItemResult, len(j.items))
		copy(snap.Items, j.items)
	}
	return snap
}
