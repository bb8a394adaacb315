package task

// DefaultMaxConcurrency is the pool size used when parallel execution is
// requested without an explicit worker count.
const DefaultMaxConcurrency = 10

// RunConfig carries the per-invocation options handed to the engine by the
// CLI (or any other caller). The zero value means: sequential, honor the
// staleness check, really execute commands.
type RunConfig struct {
	// Parallel enables bounded-concurrency scheduling of independent tasks.
	Parallel bool
	// MaxConcurrency is the pool size in parallel mode. Values < 1 fall
	// back to DefaultMaxConcurrency.
	MaxConcurrency int
	// Force bypasses the staleness check; every planned task runs.
	Force bool
	// DryRun logs commands without spawning subprocesses. Tasks are still
	// marked completed so the plan runs through logically.
	DryRun bool
	// SkipDeps resolves only the requested root tasks, never their
	// dependencies.
	SkipDeps bool
	// Verbose requests debug-level execution logging.
	Verbose bool
}

// RunStatus is the overall outcome of one engine run.
type RunStatus int

const (
	// Success: every planned task completed or was skipped as up to date.
	Success RunStatus = iota
	// PartialFailure: at least one command failed under IgnoreErrors, but
	// no task failed outright.
	PartialFailure
	// Failure: a task failed and blocked the rest of the run.
	Failure
	// Cancelled: the run was interrupted before all tasks finished.
	Cancelled
)

// String returns the lowercase name of the status.
func (s RunStatus) String() string {
	switch s {
	case Success:
		return "success"
	case PartialFailure:
		return "partial-failure"
	case Failure:
		return "failure"
	case Cancelled:
		return "cancelled"
	}
	return "unknown"
}

// FailedTask identifies the root cause of a failed run.
type FailedTask struct {
	// Name of the task whose command failed.
	Name string
	// Command is the failing command string, empty when the failure was not
	// tied to a specific command.
	Command string
	// Err is the underlying error.
	Err error
}

// RunResult is what the engine reports back to its caller. It is valid for
// reporting only; nothing in it is reused across runs.
type RunResult struct {
	Status RunStatus
	// Completed lists tasks that finished (including with warnings and
	// dry-run completions), in completion order.
	Completed []string
	// Skipped lists tasks skipped as up to date.
	Skipped []string
	// Failed carries the root-cause failure, nil unless Status is Failure.
	Failed *FailedTask
}
