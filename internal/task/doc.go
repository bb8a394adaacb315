// Package task defines the passive data model shared across the application:
// task definitions, the task graph, the run configuration, and the run
// result. It contains no execution logic. The graph is populated once by a
// taskfile loader before any engine call and is read-only afterwards.
package task
