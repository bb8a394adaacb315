// Package engine consumes an execution plan and runs its tasks, either
// strictly in plan order or with bounded concurrency. Per-task state lives
// in a run-scoped arena indexed by plan id and guarded by a single mutex;
// the arena is created fresh for every run and discarded afterwards.
// Subprocess invocation is abstracted behind the CommandRunner interface so
// the scheduling logic is testable without spawning shells.
package engine
