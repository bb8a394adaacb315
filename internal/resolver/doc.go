// Package resolver turns a task graph plus a set of requested root task
// names into a linear, dependency-respecting execution plan. It detects
// reference errors (unknown task names) and dependency cycles before any
// command is executed. Resolution is a pure function of its inputs: the
// same graph and roots always yield the same plan.
package resolver
