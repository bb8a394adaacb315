package resolver

import (
	"context"
	"slices"

	"github.com/vk/taskmill/internal/ctxlog"
	"github.com/vk/taskmill/internal/task"
)

// Plan is the immutable, linear order in which tasks will be considered for
// execution. Every dependency of a planned task appears strictly before it.
// The plan also assigns each task a stable integer id (its position) so the
// engine can keep per-task state in an indexed arena instead of hashing
// names repeatedly.
type Plan struct {
	names []string
	index map[string]int
}

// Names returns the planned task names in execution order.
func (p *Plan) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Len returns the number of planned tasks.
func (p *Plan) Len() int {
	return len(p.names)
}

// ID returns the plan-scoped integer id of a task name.
func (p *Plan) ID(name string) (int, bool) {
	id, ok := p.index[name]
	return id, ok
}

// Name returns the task name for a plan id. It panics on out-of-range ids,
// which would indicate a bug in the engine.
func (p *Plan) Name(id int) string {
	return p.names[id]
}

// Contains reports whether the plan includes the named task.
func (p *Plan) Contains(name string) bool {
	_, ok := p.index[name]
	return ok
}

// Resolve computes the execution plan for the requested roots.
//
// Each root is expanded depth-first in declared dependency order; a task is
// appended after all of its dependencies. A single visited set spans all
// roots, so a dependency shared between roots appears exactly once, at the
// earliest position that needs it.
//
// With skipDeps set, dependencies are never inspected: the roots themselves
// are planned directly, preserving caller order.
//
// Unknown names fail with *NotFoundError and cycles with *CycleError; both
// are detected before any execution happens.
func Resolve(ctx context.Context, g *task.Graph, roots []string, skipDeps bool) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)

	plan := &Plan{index: make(map[string]int)}
	appendTask := func(name string) {
		if _, dup := plan.index[name]; dup {
			return
		}
		plan.index[name] = len(plan.names)
		plan.names = append(plan.names, name)
	}

	if skipDeps {
		for _, name := range roots {
			if _, ok := g.Lookup(name); !ok {
				return nil, &NotFoundError{Name: name}
			}
			appendTask(name)
		}
		logger.Debug("Resolved plan without dependencies.", "roots", roots, "plan_size", plan.Len())
		return plan, nil
	}

	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	var stack []string

	var visit func(name, referencedBy string) error
	visit = func(name, referencedBy string) error {
		if visited[name] {
			return nil
		}
		if visiting[name] {
			return &CycleError{Path: cyclePath(stack, name)}
		}

		t, ok := g.Lookup(name)
		if !ok {
			return &NotFoundError{Name: name, ReferencedBy: referencedBy}
		}

		visiting[name] = true
		stack = append(stack, name)
		for _, dep := range t.Deps {
			if err := visit(dep, name); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		delete(visiting, name)

		visited[name] = true
		appendTask(name)
		return nil
	}

	for _, root := range roots {
		if err := visit(root, ""); err != nil {
			return nil, err
		}
	}

	logger.Debug("Resolved execution plan.", "roots", roots, "plan", plan.names)
	return plan, nil
}

// cyclePath extracts the offending cycle from the DFS stack: the segment
// from the first occurrence of the re-entered task to the top, closed by
// the task itself.
func cyclePath(stack []string, reentered string) []string {
	start := slices.Index(stack, reentered)
	if start < 0 {
		return []string{reentered, reentered}
	}
	path := make([]string, 0, len(stack)-start+1)
	path = append(path, stack[start:]...)
	return append(path, reentered)
}
