package engine

import (
	"sync"

	"github.com/vk/taskmill/internal/resolver"
)

// Status is the execution state of one planned task within a single run.
type Status int32

const (
	// Pending: not yet considered for dispatch.
	Pending Status = iota
	// Skipped: the staleness check found the task up to date.
	Skipped
	// Running: currently executing commands.
	Running
	// Completed: all commands finished successfully (or the task was dry-run).
	Completed
	// CompletedWithWarnings: finished, but one or more command failures were
	// ignored via IgnoreErrors.
	CompletedWithWarnings
	// Failed: a command failed and the task does not ignore errors.
	Failed
	// Cancelled: never dispatched, due to run cancellation or a failed
	// dependency, or terminated mid-flight by cancellation.
	Cancelled
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Skipped:
		return "skipped"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case CompletedWithWarnings:
		return "completed-with-warnings"
	case Failed:
		return "failed"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// satisfiesDependents reports whether a dependency in this status allows
// its dependents to be dispatched. Failed and Cancelled block forever;
// Skipped (up to date) satisfies, as does any completion.
func (s Status) satisfiesDependents() bool {
	switch s {
	case Completed, CompletedWithWarnings, Skipped:
		return true
	}
	return false
}

// record is the state-tagged entry for one planned task.
type record struct {
	status Status
	err    error
}

// runState is the only state shared between workers during a run. One mutex
// guards the arena and the completion-order bookkeeping.
type runState struct {
	mu      sync.Mutex
	plan    *resolver.Plan
	records []record
	// completed and skipped accumulate names in the order the statuses were
	// reached, for reporting.
	completed []string
	skipped   []string
	// firstFailed is the plan id of the first observed failure, -1 if none.
	firstFailed int
}

func newRunState(plan *resolver.Plan) *runState {
	return &runState{
		plan:        plan,
		records:     make([]record, plan.Len()),
		firstFailed: -1,
	}
}

// status returns the current status of a plan id.
func (st *runState) status(id int) Status {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.records[id].status
}

// transition moves a task into a new status, recording an optional error
// and the reporting bookkeeping that goes with terminal states.
func (st *runState) transition(id int, s Status, err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.records[id].status = s
	if err != nil {
		st.records[id].err = err
	}
	switch s {
	case Completed, CompletedWithWarnings:
		st.completed = append(st.completed, st.plan.Name(id))
	case Skipped:
		st.skipped = append(st.skipped, st.plan.Name(id))
	case Failed:
		if st.firstFailed < 0 {
			st.firstFailed = id
		}
	}
}

// depsSatisfied reports whether every listed dependency id currently allows
// dependents to run.
func (st *runState) depsSatisfied(deps []int) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, dep := range deps {
		if !st.records[dep].status.satisfiesDependents() {
			return false
		}
	}
	return true
}

// anyStatus reports whether any record currently has the given status.
func (st *runState) anyStatus(s Status) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	for i := range st.records {
		if st.records[i].status == s {
			return true
		}
	}
	return false
}

// report returns copies of the completion-order name lists.
func (st *runState) report() (completed, skipped []string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	completed = append([]string(nil), st.completed...)
	skipped = append([]string(nil), st.skipped...)
	return completed, skipped
}

// failure returns the first observed failure, or nil.
func (st *runState) failure() (name string, err error, ok bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.firstFailed < 0 {
		return "", nil, false
	}
	return st.plan.Name(st.firstFailed), st.records[st.firstFailed].err, true
}
