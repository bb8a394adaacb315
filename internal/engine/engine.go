package engine

import (
	"context"
	"errors"

	"golang.org/x/sync/semaphore"

	"github.com/vk/taskmill/internal/ctxlog"
	"github.com/vk/taskmill/internal/resolver"
	"github.com/vk/taskmill/internal/staleness"
	"github.com/vk/taskmill/internal/task"
)

// Engine executes resolved plans over a read-only task graph.
type Engine struct {
	graph  *task.Graph
	runner CommandRunner
}

// New creates an engine. A nil runner selects the production ShellRunner
// writing to the process's own streams.
func New(graph *task.Graph, runner CommandRunner) *Engine {
	if runner == nil {
		runner = &ShellRunner{}
	}
	return &Engine{graph: graph, runner: runner}
}

// Run resolves the requested roots and executes the resulting plan. A
// resolution error (unknown task, dependency cycle) is returned before any
// command executes; a malformed graph never causes partial execution.
func (e *Engine) Run(ctx context.Context, roots []string, cfg task.RunConfig) (*task.RunResult, error) {
	plan, err := resolver.Resolve(ctx, e.graph, roots, cfg.SkipDeps)
	if err != nil {
		return nil, err
	}
	return e.Execute(ctx, plan, cfg), nil
}

// Execute runs an already-resolved plan. The plan must have been produced
// from the same graph the engine was built with.
func (e *Engine) Execute(ctx context.Context, plan *resolver.Plan, cfg task.RunConfig) *task.RunResult {
	logger := ctxlog.FromContext(ctx)

	if plan.Len() == 0 {
		logger.Warn("Execution plan is empty, nothing to run.")
		return &task.RunResult{Status: task.Success}
	}

	st := newRunState(plan)
	if cfg.Parallel {
		e.runParallel(ctx, plan, cfg, st)
	} else {
		e.runSequential(ctx, plan, cfg, st)
	}
	return e.buildResult(ctx, st)
}

// runSequential walks the plan in order. The first unignored command
// failure aborts the run: no further task starts.
func (e *Engine) runSequential(ctx context.Context, plan *resolver.Plan, cfg task.RunConfig, st *runState) {
	logger := ctxlog.FromContext(ctx)

	for id := 0; id < plan.Len(); id++ {
		if ctx.Err() != nil {
			e.markUndispatched(ctx, plan, st)
			return
		}
		if st.status(id) != Pending {
			continue
		}
		name := plan.Name(id)
		t, ok := e.graph.Lookup(name)
		if !ok {
			// The resolver guarantees planned tasks exist.
			panic("engine: planned task missing from graph: " + name)
		}

		if !cfg.Force && !staleness.ShouldRun(ctx, t) {
			logger.Info("⏭️ Task up to date, skipping.", "task", name)
			st.transition(id, Skipped, nil)
			continue
		}

		st.transition(id, Running, nil)
		warned, err := e.runTask(ctx, t, cfg)
		switch {
		case err != nil && isCancellation(err):
			st.transition(id, Cancelled, err)
			e.markUndispatched(ctx, plan, st)
			return
		case err != nil:
			st.transition(id, Failed, err)
			logger.Error("❌ Task failed, aborting run.", "task", name, "error", err)
			return
		case warned:
			st.transition(id, CompletedWithWarnings, nil)
		default:
			st.transition(id, Completed, nil)
		}
	}
}

// outcome is what a parallel worker reports back to the dispatcher.
type outcome struct {
	id     int
	warned bool
	err    error
}

// runParallel dispatches independent tasks over a bounded pool. A task is
// eligible only once every planned dependency has a satisfying status in
// the arena; eligibility is derived from the plan and the run state alone,
// the graph is never re-walked. An observed failure stops new dispatch but
// lets in-flight tasks drain.
func (e *Engine) runParallel(ctx context.Context, plan *resolver.Plan, cfg task.RunConfig, st *runState) {
	logger := ctxlog.FromContext(ctx)

	workers := cfg.MaxConcurrency
	if workers < 1 {
		workers = task.DefaultMaxConcurrency
	}
	sem := semaphore.NewWeighted(int64(workers))
	done := make(chan outcome)

	deps := plannedDeps(e.graph, plan)
	inFlight := 0
	halted := false

	logger.Debug("Starting parallel dispatch.", "workers", workers, "plan_size", plan.Len())

	for {
		if !halted && ctx.Err() != nil {
			logger.Warn("Cancellation observed, no new tasks will be dispatched.")
			halted = true
		}

		progressed := false
		if !halted {
			for id := 0; id < plan.Len(); id++ {
				if st.status(id) != Pending || !st.depsSatisfied(deps[id]) {
					continue
				}
				name := plan.Name(id)
				t, _ := e.graph.Lookup(name)

				if !cfg.Force && !staleness.ShouldRun(ctx, t) {
					logger.Info("⏭️ Task up to date, skipping.", "task", name)
					st.transition(id, Skipped, nil)
					progressed = true
					continue
				}
				if !sem.TryAcquire(1) {
					break // pool exhausted, wait for a slot to free up
				}
				st.transition(id, Running, nil)
				inFlight++
				progressed = true
				go func(id int, t *task.Task) {
					defer sem.Release(1)
					warned, err := e.runTask(ctx, t, cfg)
					done <- outcome{id: id, warned: warned, err: err}
				}(id, t)
			}
		}

		if progressed {
			continue
		}
		if inFlight == 0 {
			// Nothing running and nothing dispatchable: the plan is done,
			// halted, or the remaining tasks are blocked by a failure.
			break
		}

		out := <-done
		inFlight--
		name := plan.Name(out.id)
		switch {
		case out.err != nil && isCancellation(out.err):
			logger.Warn("Task cancelled mid-flight.", "task", name)
			st.transition(out.id, Cancelled, out.err)
			halted = true
		case out.err != nil:
			logger.Error("❌ Task failed, draining in-flight work.", "task", name, "error", out.err)
			st.transition(out.id, Failed, out.err)
			halted = true
		case out.warned:
			st.transition(out.id, CompletedWithWarnings, nil)
		default:
			st.transition(out.id, Completed, nil)
		}
	}

	if ctx.Err() != nil {
		e.markUndispatched(ctx, plan, st)
	}
}

// runTask executes one task's command list strictly in order. An ignored
// failure sets warned and moves on; an unignored one aborts the task.
func (e *Engine) runTask(ctx context.Context, t *task.Task, cfg task.RunConfig) (warned bool, err error) {
	logger := ctxlog.FromContext(ctx).With("task", t.Name)
	logger.Info("▶️ Starting task.")

	for _, command := range t.Commands {
		if err := ctx.Err(); err != nil {
			return warned, err
		}
		if cfg.DryRun {
			logger.Info("Dry run: command not executed.", "command", command)
			continue
		}
		if err := e.runner.Run(ctx, t, command); err != nil {
			if t.IgnoreErrors {
				logger.Warn("Command failed, continuing (ignore_errors).", "command", command, "error", err)
				warned = true
				continue
			}
			return warned, err
		}
	}

	logger.Info("✅ Task finished.")
	return warned, nil
}

// markUndispatched moves every still-pending task to Cancelled after the
// run was interrupted. Already-completed tasks keep their status for
// reporting.
func (e *Engine) markUndispatched(ctx context.Context, plan *resolver.Plan, st *runState) {
	for id := 0; id < plan.Len(); id++ {
		if st.status(id) == Pending {
			st.transition(id, Cancelled, context.Cause(ctx))
		}
	}
}

// buildResult assembles the RunResult from the arena.
func (e *Engine) buildResult(ctx context.Context, st *runState) *task.RunResult {
	completed, skipped := st.report()
	res := &task.RunResult{Completed: completed, Skipped: skipped}

	if name, err, ok := st.failure(); ok {
		res.Status = task.Failure
		failed := &task.FailedTask{Name: name, Err: err}
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			failed.Command = cmdErr.Command
		}
		res.Failed = failed
		return res
	}
	if ctx.Err() != nil || st.anyStatus(Cancelled) {
		res.Status = task.Cancelled
		return res
	}
	if st.anyStatus(CompletedWithWarnings) {
		res.Status = task.PartialFailure
		return res
	}
	res.Status = task.Success
	return res
}

// plannedDeps resolves, once per run, each planned task's dependency list
// into plan ids. Dependencies outside the plan (skip-deps mode) impose no
// ordering.
func plannedDeps(g *task.Graph, plan *resolver.Plan) [][]int {
	deps := make([][]int, plan.Len())
	for id := 0; id < plan.Len(); id++ {
		t, ok := g.Lookup(plan.Name(id))
		if !ok {
			continue
		}
		for _, dep := range t.Deps {
			if depID, ok := plan.ID(dep); ok {
				deps[id] = append(deps[id], depID)
			}
		}
	}
	return deps
}

// isCancellation reports whether the error stems from context termination
// rather than a genuine command failure.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
