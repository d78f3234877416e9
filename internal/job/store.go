package job

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/risk-sentinel/internal/types"
)

// DefaultRetention is how long terminal jobs are kept before garbage
// collection.
const DefaultRetention = time.Hour

// Store is the job registry. It enforces the single-active-job policy,
// serializes every job mutation through one lock, and garbage-collects
// terminal jobs after a retention window. Stores are explicitly constructed
// so isolated instances can coexist in tests.
type Store struct {
	mu        sync.Mutex
	jobs      map[uuid.UUID]*Job
	active    *Job
	retention time.Duration
}

// NewStore creates a store. retention <= 0 uses DefaultRetention.
func NewStore(retention time.Duration) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{
		jobs:      make(map[uuid.UUID]*Job),
		retention: retention,
	}
}

// Create registers a new PENDING job. At most one job may be non-terminal
// system-wide; a second create returns a ConflictError carrying the active
// job's id and creates nothing.
func (s *Store) Create(params Params) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()

	if s.active != nil && !s.active.status.Terminal() {
		return nil, &ConflictError{ExistingID: s.active.id}
	}

	now := time.Now().UTC()
	j := &Job{
		id:         uuid.New(),
		status:     StatusPending,
		params:     params,
		createdAt:  now,
		updatedAt:  now,
		dispatcher: NewDispatcher(),
	}
	s.jobs[j.id] = j
	s.active = j
	return j, nil
}

// Get returns a snapshot of a job, including its full item log.
func (s *Store) Get(id uuid.UUID) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return Snapshot{}, &NotFoundError{ID: id}
	}
	return j.snapshotLocked(true), nil
}

// Current returns the most recently created job, preferring the active one.
func (s *Store) Current() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return Snapshot{}, &NotFoundError{}
	}
	return s.active.snapshotLocked(true), nil
}

// Resolve returns the job itself (for stream subscription); id may be the
// zero UUID to mean the current job.
func (s *Store) Resolve(id uuid.UUID) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == (uuid.UUID{}) {
		if s.active == nil {
			return nil, &NotFoundError{}
		}
		return s.active, nil
	}
	j, ok := s.jobs[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return j, nil
}

// List returns snapshots (without item logs) of the n most recent jobs.
func (s *Store) List(n int) []Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snaps := make([]Snapshot, 0, len(s.jobs))
	for _, j := range s.jobs {
		snaps = append(snaps, j.snapshotLocked(false))
	}
	sort.Slice(snaps, func(i, k int) bool {
		return snaps[i].CreatedAt.After(snaps[k].CreatedAt)
	})
	if n > 0 && len(snaps) > n {
		snaps = snaps[:n]
	}
	return snaps
}

// Cancel requests cooperative cancellation. Any non-terminal job transitions
// to CANCELLED immediately; the background run observes the status at its
// checkpoints and stops, and late results are discarded on arrival.
// Cancelling a terminal job returns a NotRunningError.
func (s *Store) Cancel(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	if j.status.Terminal() {
		return &NotRunningError{ID: id, Status: j.status}
	}
	j.status = StatusCancelled
	j.updatedAt = time.Now().UTC()
	return nil
}

// IsCancelled reports whether the job has been cancelled. Used as the
// cooperative checkpoint by the runner and the enrichment gate.
func (s *Store) IsCancelled(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	return ok && j.status == StatusCancelled
}

// Transition moves a job to a new non-terminal working status. Transitions
// out of a terminal state are ignored, which is what makes cancellation
// sticky. Returns the status actually in effect afterwards.
func (s *Store) Transition(id uuid.UUID, next Status) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return ""
	}
	if j.status.Terminal() {
		return j.status
	}
	j.status = next
	j.updatedAt = time.Now().UTC()
	return j.status
}

// Append adds one completed result to the job's item log, in completion
// order, and returns true if it was recorded. Results arriving after the
// job reached a terminal state are discarded.
func (s *Store) Append(id uuid.UUID, res types.ItemResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.status.Terminal() {
		return false
	}
	j.items = append(j.items, res)
	j.updatedAt = time.Now().UTC()
	return true
}

// Complete finalizes the job with its summary. Jobs already terminal
// (cancelled) keep their status but still record the partial summary.
func (s *Store) Complete(id uuid.UUID, summary Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return
	}
	j.summary = &summary
	if !j.status.Terminal() {
		j.status = StatusCompleted
	}
	j.updatedAt = time.Now().UTC()
}

// Fail marks the job FAILED with the given job-fatal error. FAILED is
// reserved for failures that prevent any progress at all; per-item and
// per-source failures are absorbed upstream and never reach here.
func (s *Store) Fail(id uuid.UUID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok || j.status.Terminal() {
		return
	}
	j.status = StatusFailed
	j.err = err.Error()
	j.updatedAt = time.Now().UTC()
}

// ItemCount returns the current length of the job's item log.
func (s *Store) ItemCount(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return 0
	}
	return len(j.items)
}

// sweepLocked garbage-collects terminal jobs past the retention window.
// Caller must hold s.mu.
func (s *Store) sweepLocked() {
	cutoff := time.Now().UTC().Add(-s.retention)
	for id, j := range s.jobs {
		if j.status.Terminal() && j.updatedAt.Before(cutoff) {
			j.dispatcher.Close()
			delete(s.jobs, id)
			if s.active == j {
				s.active = nil
			}
		}
	}
}
