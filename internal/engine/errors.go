package engine

import "fmt"

// CommandError reports a single command invocation that failed. It carries
// everything the caller needs for diagnostics: the task, the exact command
// string, and the subprocess exit code.
type CommandError struct {
	// Task is the name of the task the command belongs to.
	Task string
	// Command is the failing command string as written in the taskfile.
	Command string
	// ExitCode is the subprocess exit code, -1 when the process never ran
	// (e.g. the executable was not found or the command did not parse).
	ExitCode int
	// Err is the underlying error from os/exec or the command splitter.
	Err error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.ExitCode >= 0 {
		return fmt.Sprintf("task %q: command %q exited with code %d", e.Task, e.Command, e.ExitCode)
	}
	return fmt.Sprintf("task %q: command %q failed: %v", e.Task, e.Command, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *CommandError) Unwrap() error {
	return e.Err
}
