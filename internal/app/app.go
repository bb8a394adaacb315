package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/taskmill/internal/ctxlog"
	"github.com/vk/taskmill/internal/task"
	"github.com/vk/taskmill/internal/taskfile"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle: one loaded task graph plus the logger and output streams every
// run shares.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	graph  *task.Graph
}

// NewApp constructs the application: it configures an isolated logger,
// locates the taskfile, and loads the task graph. A failure to load
// configuration is a fatal startup error and panics; the entrypoint
// recovers it into a clean exit message.
func NewApp(outW io.Writer, cfg *Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	path, err := taskfile.Find(cfg.TaskfilePath)
	if err != nil {
		panic(fmt.Errorf("failed to locate taskfile: %w", err))
	}
	graph, err := taskfile.Load(ctx, path)
	if err != nil {
		panic(fmt.Errorf("failed to load taskfile: %w", err))
	}
	logger.Debug("Task graph loaded.", "path", path, "tasks", graph.Len())

	return &App{
		outW:   outW,
		logger: logger,
		config: cfg,
		graph:  graph,
	}
}

// Graph returns the loaded task graph. This is primarily for testing.
func (a *App) Graph() *task.Graph {
	return a.graph
}
