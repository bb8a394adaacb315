package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/taskmill/internal/app"
	"github.com/vk/taskmill/internal/task"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated app
// config plus the requested root task names, a boolean indicating the
// program should exit cleanly (help or usage was printed), or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, []string, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("taskmill", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
taskmill - a dependency-aware task runner with incremental builds.

Usage:
  taskmill [options] TASK [TASK...]

Arguments:
  TASK
    One or more task names from the taskfile to run, in order.

Options:
`)
		flagSet.PrintDefaults()
	}

	taskfileFlag := flagSet.String("taskfile", "", "Path to the taskfile or a directory containing one.")
	fFlag := flagSet.String("f", "", "Path to the taskfile (shorthand).")
	listFlag := flagSet.Bool("list", false, "List the known tasks and exit.")
	parallelFlag := flagSet.Bool("parallel", false, "Run independent tasks concurrently.")
	workersFlag := flagSet.Int("workers", 10, "Pool size for parallel execution.")
	forceFlag := flagSet.Bool("force", false, "Run tasks even when their outputs are up to date.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Log commands without executing them.")
	skipDepsFlag := flagSet.Bool("skip-deps", false, "Run only the named tasks, not their dependencies.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	verboseFlag := flagSet.Bool("verbose", false, "Shorthand for -log-level debug.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, nil, true, nil
		}
		return nil, nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	taskfilePath := *taskfileFlag
	if taskfilePath == "" {
		taskfilePath = *fFlag
	}

	roots := flagSet.Args()
	if len(roots) == 0 && !*listFlag {
		slog.Debug("No task names provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}

	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if *verboseFlag {
		logLevel = "debug"
	}

	config, err := app.NewConfig(app.Config{
		TaskfilePath: taskfilePath,
		LogFormat:    logFormat,
		LogLevel:     logLevel,
		List:         *listFlag,
		Run: task.RunConfig{
			Parallel:       *parallelFlag,
			MaxConcurrency: *workersFlag,
			Force:          *forceFlag,
			DryRun:         *dryRunFlag,
			SkipDeps:       *skipDepsFlag,
			Verbose:        *verboseFlag,
		},
	})
	if err != nil {
		return nil, nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "roots", roots)
	return config, roots, false, nil
}
