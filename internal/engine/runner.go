package engine

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sort"

	"github.com/kballard/go-shellquote"

	"github.com/vk/taskmill/internal/ctxlog"
	"github.com/vk/taskmill/internal/task"
)

// CommandRunner executes one command string on behalf of a task. The caller
// blocks until the command exits or the context terminates it.
type CommandRunner interface {
	Run(ctx context.Context, t *task.Task, command string) error
}

// ShellRunner is the production CommandRunner: it splits the command string
// shell-style, spawns the subprocess with the task's merged environment and
// working directory, and passes stdout/stderr through to the configured
// writers.
type ShellRunner struct {
	// Stdout and Stderr receive the subprocess output streams. Nil values
	// fall back to the process's own streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Run implements CommandRunner.
func (r *ShellRunner) Run(ctx context.Context, t *task.Task, command string) error {
	logger := ctxlog.FromContext(ctx).With("task", t.Name)

	words, err := shellquote.Split(command)
	if err != nil {
		return &CommandError{Task: t.Name, Command: command, ExitCode: -1, Err: err}
	}
	if len(words) == 0 {
		return &CommandError{Task: t.Name, Command: command, ExitCode: -1, Err: errors.New("empty command")}
	}

	cmd := exec.CommandContext(ctx, words[0], words[1:]...)
	cmd.Dir = t.Dir
	cmd.Env = MergedEnv(t)
	cmd.Stdout = r.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = r.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	logger.Debug("Spawning command.", "command", command, "dir", cmd.Dir)
	if err := cmd.Run(); err != nil {
		code := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
		// Surface cancellation as such instead of the kill signal it caused.
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return &CommandError{Task: t.Name, Command: command, ExitCode: code, Err: err}
	}
	return nil
}

// MergedEnv returns the ambient process environment overlaid with the
// task's variables as KEY=value pairs. The snapshot is handed to each
// subprocess explicitly; the process-wide environment is never mutated, so
// concurrent tasks cannot race on it. Task keys are appended last in sorted
// order (os/exec lets later entries win), keeping the slice deterministic.
func MergedEnv(t *task.Task) []string {
	env := os.Environ()
	if len(t.Env) == 0 {
		return env
	}
	keys := make([]string, 0, len(t.Env))
	for k := range t.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+t.Env[k])
	}
	return env
}
