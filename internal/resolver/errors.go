package resolver

import (
	"fmt"
	"strings"
)

// NotFoundError reports a task name that is not registered in the graph,
// whether it was requested directly or referenced as a dependency.
type NotFoundError struct {
	// Name is the unresolved task name.
	Name string
	// ReferencedBy is the task whose dependency list named it, or empty
	// when the name was a requested root.
	ReferencedBy string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.ReferencedBy != "" {
		return fmt.Sprintf("task %q not found (required by %q)", e.Name, e.ReferencedBy)
	}
	return fmt.Sprintf("task %q not found", e.Name)
}

// CycleError reports a dependency cycle. Path holds the task names from the
// re-entered task back to itself, e.g. ["a", "b", "a"].
type CycleError struct {
	Path []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Path, " -> "))
}
