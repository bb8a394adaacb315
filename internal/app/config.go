package app

import (
	"errors"

	"github.com/vk/taskmill/internal/task"
)

// Config holds everything an App instance needs to run.
type Config struct {
	// TaskfilePath points at a taskfile or a directory containing one.
	// Empty means: probe the current directory for the default names.
	TaskfilePath string

	LogFormat string
	LogLevel  string

	// List prints the known tasks instead of executing anything.
	List bool

	// Run carries the per-invocation engine options.
	Run task.RunConfig
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Run.MaxConcurrency < 0 {
		return nil, errors.New("workers must not be negative")
	}
	return &cfg, nil
}
