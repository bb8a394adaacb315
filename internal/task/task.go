package task

import "fmt"

// Task is an immutable definition of one named unit of work. Instances are
// created by a taskfile loader and never mutated afterwards.
type Task struct {
	// Name is the unique identifier of the task. It is never empty.
	Name string
	// Description is optional human-readable text, shown in listings.
	Description string
	// Deps holds the names of tasks that must complete before this one.
	// The order is preserved from the taskfile; it drives deterministic
	// resolution. Duplicates are idempotent.
	Deps []string
	// Commands holds shell command strings, executed strictly in order.
	// A later command may depend on side effects of an earlier one.
	Commands []string
	// Env holds task-scoped environment variables. They are merged over the
	// ambient process environment for each command invocation, never written
	// back into the process.
	Env map[string]string
	// Dir optionally overrides the working directory for command execution.
	Dir string
	// Sources and Generates hold glob patterns consumed only by the
	// staleness check. Either list being empty disables the check.
	Sources   []string
	Generates []string
	// IgnoreErrors makes a failing command log a warning instead of failing
	// the task; execution proceeds to the next command and the task still
	// counts as completed for its dependents.
	IgnoreErrors bool
	// Parallel is a scheduling hint only. Commands within one task are
	// always run sequentially regardless of its value, and the engine is
	// free to run any independent tasks concurrently.
	Parallel bool
}

// Graph maps task names to their definitions. Registration order is
// unconstrained: a task may reference dependencies that are added later.
// Dependency existence is checked lazily by the resolver, not here.
type Graph struct {
	tasks map[string]*Task
	// order remembers insertion order so listings are stable.
	order []string
}

// NewGraph creates an empty task graph.
func NewGraph() *Graph {
	return &Graph{tasks: make(map[string]*Task)}
}

// Add registers a task. It rejects empty and duplicate names; everything
// else, including references to unknown dependencies, is accepted.
func (g *Graph) Add(t *Task) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("task name is required")
	}
	if _, exists := g.tasks[t.Name]; exists {
		return fmt.Errorf("duplicate task name %q", t.Name)
	}
	g.tasks[t.Name] = t
	g.order = append(g.order, t.Name)
	return nil
}

// Lookup returns the task registered under name, if any.
func (g *Graph) Lookup(name string) (*Task, bool) {
	t, ok := g.tasks[name]
	return t, ok
}

// Names returns all task names in registration order.
func (g *Graph) Names() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Len returns the number of registered tasks.
func (g *Graph) Len() int {
	return len(g.tasks)
}
