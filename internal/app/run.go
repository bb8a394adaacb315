package app

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/vk/taskmill/internal/ctxlog"
	"github.com/vk/taskmill/internal/engine"
	"github.com/vk/taskmill/internal/task"
)

// Run executes the requested root tasks (or lists the known tasks when the
// config asks for that) and maps the engine's result onto an error for the
// entrypoint's exit-code handling.
func (a *App) Run(ctx context.Context, roots []string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "roots", roots)

	if a.config.List {
		return a.listTasks()
	}
	if len(roots) == 0 {
		return fmt.Errorf("no tasks requested")
	}

	runner := &engine.ShellRunner{Stdout: a.outW, Stderr: a.outW}
	eng := engine.New(a.graph, runner)

	a.logger.Info("🚀 Starting run.",
		"roots", roots,
		"parallel", a.config.Run.Parallel,
		"dry_run", a.config.Run.DryRun,
	)
	result, err := eng.Run(ctx, roots, a.config.Run)
	if err != nil {
		// Resolution failed: nothing was executed.
		return err
	}

	switch result.Status {
	case task.Success:
		a.logger.Info("🏁 Run finished.",
			"completed", len(result.Completed), "skipped", len(result.Skipped))
		return nil
	case task.PartialFailure:
		a.logger.Warn("🏁 Run finished, but some command failures were ignored.",
			"completed", len(result.Completed), "skipped", len(result.Skipped))
		return nil
	case task.Cancelled:
		return fmt.Errorf("run cancelled after %d completed task(s)", len(result.Completed))
	default:
		failed := result.Failed
		if failed.Command != "" {
			return fmt.Errorf("task %q failed on command %q: %w", failed.Name, failed.Command, failed.Err)
		}
		return fmt.Errorf("task %q failed: %w", failed.Name, failed.Err)
	}
}

// listTasks prints every known task with its description, in registration
// order.
func (a *App) listTasks() error {
	w := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	for _, name := range a.graph.Names() {
		t, ok := a.graph.Lookup(name)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\n", name, t.Description)
	}
	return w.Flush()
}
