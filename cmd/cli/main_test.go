package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRun_PanicRecovery(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	// A taskfile with a syntax error panics inside app.NewApp; run must
	// recover it and return a clean error.
	invalidHCL := `
		task "build" {
			commands = [
		// Missing closing bracket here
	`
	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "taskmill.hcl")
	err := os.WriteFile(filePath, []byte(invalidHCL), 0o600)
	require.NoError(t, err, "failed to set up test file")

	args := []string{"-taskfile", filePath, "build"}
	out := &bytes.Buffer{}

	// --- Act ---
	runErr := run(context.Background(), out, args)

	// --- Assert ---
	require.Error(t, runErr, "run() should have returned an error after recovering from a panic")

	errStr := runErr.Error()
	require.True(t, strings.Contains(errStr, "application startup panicked"), "The error message should indicate that a panic was recovered.")
	require.True(t, strings.Contains(errStr, "failed to"), "The error message should contain the underlying reason for the panic.")
}

func TestRun_ShouldExit(t *testing.T) {
	t.Parallel()

	// The "-h" (help) flag should cause cli.Parse to return shouldExit=true.
	args := []string{"-h"}
	out := &bytes.Buffer{}

	err := run(context.Background(), out, args)

	require.NoError(t, err, "run() should return a nil error when shouldExit is true")
	require.Contains(t, out.String(), "Usage:", "Expected help text to be printed to the output buffer")
}

func TestRun_DryRunEndToEnd(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "taskmill.hcl")
	taskfile := `
task "clean" { commands = ["rm -rf bin"] }
task "build" {
  deps     = ["clean"]
  commands = ["go build ./..."]
}
`
	require.NoError(t, os.WriteFile(filePath, []byte(taskfile), 0o600))

	args := []string{"-taskfile", filePath, "-dry-run", "-log-level", "error", "build"}
	out := &bytes.Buffer{}

	require.NoError(t, run(context.Background(), out, args))
}

func TestRun_FailingTaskSurfacesError(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	filePath := filepath.Join(tempDir, "taskmill.hcl")
	require.NoError(t, os.WriteFile(filePath, []byte(`task "doomed" { commands = ["false"] }`), 0o600))

	args := []string{"-taskfile", filePath, "-log-level", "error", "doomed"}
	out := &bytes.Buffer{}

	err := run(context.Background(), out, args)
	require.Error(t, err)
	require.Contains(t, err.Error(), "doomed")
}
