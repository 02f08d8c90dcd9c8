package pipeline

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dgallion1/bookdigest/internal/artifact"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusGrouping    Status = "grouping"
	StatusProcessing  Status = "processing"
	StatusAggregating Status = "aggregating"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

// Terminal reports whether no further transitions follow s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// GroupState is a group plus its per-run output.
type GroupState struct {
	Group
	IsLoading bool              `json:"isLoading"`
	Cached    bool              `json:"cached"`
	Summary   string            `json:"summary,omitempty"`
	MindMap   *artifact.MindMap `json:"mindMap,omitempty"`
}

// Result is the final artifact of a completed run.
type Result struct {
	Groups                []GroupState      `json:"groups"`
	Connections           string            `json:"connections,omitempty"`
	OverallSummary        string            `json:"overallSummary,omitempty"`
	CharacterRelationship string            `json:"characterRelationship,omitempty"`
	CombinedMindMap       *artifact.MindMap `json:"combinedMindMap,omitempty"`
}

// Run tracks the state of one pipeline execution.
type Run struct {
	mu sync.Mutex

	ID    string
	DocID string
	Mode  Mode

	status   Status
	step     string
	progress int
	err      error
	groups   []GroupState
	result   *Result

	createdAt time.Time
	updatedAt time.Time

	cancel   context.CancelFunc
	done     chan struct{}
	onUpdate func(Snapshot)
}

func newRun(id, docID string, mode Mode, onUpdate func(Snapshot)) *Run {
	now := time.Now()
	return &Run{
		ID:        id,
		DocID:     docID,
		Mode:      mode,
		status:    StatusIdle,
		createdAt: now,
		updatedAt: now,
		done:      make(chan struct{}),
		onUpdate:  onUpdate,
	}
}

// update applies fn under the lock, then publishes a snapshot. Updates on a
// terminal run are dropped.
func (r *Run) update(fn func()) {
	r.mu.Lock()
	if r.status.Terminal() {
		r.mu.Unlock()
		return
	}
	fn()
	r.updatedAt = time.Now()
	snap := r.snapshotLocked()
	cb := r.onUpdate
	r.mu.Unlock()
	if cb != nil {
		cb(snap)
	}
}

// setStage moves to status with a step label. Progress never decreases.
func (r *Run) setStage(status Status, step string, progress int) {
	r.update(func() {
		r.status = status
		r.step = step
		if progress > r.progress {
			r.progress = min(progress, 99)
		}
	})
}

func (r *Run) setProgress(progress int) {
	r.update(func() {
		if progress > r.progress {
			r.progress = min(progress, 99)
		}
	})
}

func (r *Run) setGroups(groups []Group) {
	r.update(func() {
		r.groups = make([]GroupState, len(groups))
		for i, g := range groups {
			r.groups[i] = GroupState{Group: g}
		}
	})
}

func (r *Run) setGroupLoading(i int) {
	r.update(func() {
		r.groups[i].IsLoading = true
	})
}

// setGroupResult records group i's output and the progress it completes in
// a single update.
func (r *Run) setGroupResult(i int, summary string, mm *artifact.MindMap, cached bool, progress int) {
	r.update(func() {
		g := &r.groups[i]
		g.IsLoading = false
		g.Cached = cached
		g.Summary = summary
		g.MindMap = mm
		if progress > r.progress {
			r.progress = min(progress, 99)
		}
	})
}

func (r *Run) complete(res *Result) {
	r.update(func() {
		res.Groups = cloneGroups(r.groups)
		r.result = res
		r.status = StatusCompleted
		r.step = "done"
		r.progress = 100
	})
}

func (r *Run) fail(err error) {
	r.update(func() {
		r.err = err
		r.status = StatusFailed
		for i := range r.groups {
			r.groups[i].IsLoading = false
		}
	})
}

func (r *Run) markCancelled() {
	r.update(func() {
		r.err = context.Canceled
		r.status = StatusCancelled
		for i := range r.groups {
			r.groups[i].IsLoading = false
		}
	})
}

// Cancel stops the run. Teardown completes asynchronously; use Wait.
func (r *Run) Cancel() {
	if r.cancel != nil {
		r.cancel()
	}
}

// Done is closed once the run has torn down.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run finishes or ctx ends, and returns the final
// snapshot with the run error, if any.
func (r *Run) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-r.done:
	case <-ctx.Done():
		return r.Snapshot(), ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(), r.err
}

// Snapshot is a read-only, JSON-safe copy of run state.
type Snapshot struct {
	ID        string       `json:"run_id"`
	DocID     string       `json:"doc_id"`
	Mode      Mode         `json:"mode"`
	Status    Status       `json:"status"`
	Step      string       `json:"step"`
	Progress  int          `json:"progress"`
	Error     string       `json:"error,omitempty"`
	Groups    []GroupState `json:"groups"`
	Result    *Result      `json:"result,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the run state.
func (r *Run) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Run) snapshotLocked() Snapshot {
	s := Snapshot{
		ID:        r.ID,
		DocID:     r.DocID,
		Mode:      r.Mode,
		Status:    r.status,
		Step:      r.step,
		Progress:  r.progress,
		Groups:    cloneGroups(r.groups),
		CreatedAt: r.createdAt,
		UpdatedAt: r.updatedAt,
	}
	// Cancellation is not a failure and carries no error text.
	if r.err != nil && r.status == StatusFailed {
		s.Error = r.err.Error()
	}
	if r.result != nil {
		res := *r.result
		res.Groups = cloneGroups(r.result.Groups)
		s.Result = &res
	}
	return s
}

func cloneGroups(in []GroupState) []GroupState {
	out := make([]GroupState, len(in))
	for i, g := range in {
		g.ChapterIDs = slices.Clone(g.ChapterIDs)
		g.Titles = slices.Clone(g.Titles)
		out[i] = g
	}
	return out
}

// RunStore is a thread-safe in-memory run registry with TTL eviction.
type RunStore struct {
	mu   sync.Mutex
	runs map[string]*Run
	ttl  time.Duration
}

func NewRunStore(ttl time.Duration) *RunStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RunStore{runs: make(map[string]*Run), ttl: ttl}
}

func (s *RunStore) Put(r *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.ID] = r
}

func (s *RunStore) Get(id string) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[id]
}

// Cleanup removes finished runs idle for longer than the TTL.
func (s *RunStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	removed := 0
	for id, r := range s.runs {
		r.mu.Lock()
		expired := r.status.Terminal() && now.Sub(r.updatedAt) > s.ttl
		r.mu.Unlock()
		if expired {
			delete(s.runs, id)
			removed++
		}
	}
	return removed
}
