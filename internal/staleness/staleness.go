package staleness

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/taskmill/internal/ctxlog"
	"github.com/vk/taskmill/internal/task"
)

// ShouldRun decides whether the task's commands must execute. It returns
// false only when every declared generated file exists and none is older
// than the newest matched source file.
func ShouldRun(ctx context.Context, t *task.Task) bool {
	logger := ctxlog.FromContext(ctx).With("task", t.Name)

	if len(t.Sources) == 0 || len(t.Generates) == 0 {
		logger.Debug("No staleness signal declared, task will run.")
		return true
	}

	sources, err := expand(t.Dir, t.Sources)
	if err != nil {
		logger.Debug("Source pattern expansion failed, task will run.", "error", err)
		return true
	}
	if len(sources) == 0 {
		logger.Debug("Source patterns matched no files, task will run.")
		return true
	}

	var maxSourceTime time.Time
	for _, path := range sources {
		info, err := os.Stat(path)
		if err != nil {
			logger.Debug("Source file not statable, task will run.", "path", path, "error", err)
			return true
		}
		if info.ModTime().After(maxSourceTime) {
			maxSourceTime = info.ModTime()
		}
	}

	generated, err := expand(t.Dir, t.Generates)
	if err != nil {
		logger.Debug("Generated pattern expansion failed, task will run.", "error", err)
		return true
	}
	if len(generated) == 0 {
		logger.Debug("Generated patterns matched no files, task will run.")
		return true
	}

	for _, path := range generated {
		info, err := os.Stat(path)
		if err != nil {
			logger.Debug("Generated file missing, task will run.", "path", path, "error", err)
			return true
		}
		if info.ModTime().Before(maxSourceTime) {
			logger.Debug("Generated file older than newest source, task will run.",
				"path", path, "generated_mtime", info.ModTime(), "max_source_mtime", maxSourceTime)
			return true
		}
	}

	logger.Debug("All generated files up to date, task can be skipped.")
	return false
}

// expand resolves glob patterns into concrete paths. Relative patterns are
// interpreted under the task's working directory when one is set. Patterns
// naming a file that does not exist simply match nothing; generated files
// declared literally are still reported as paths so the caller can detect
// their absence.
func expand(dir string, patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		p := pattern
		if dir != "" && !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, err
		}
		if matches == nil && !hasMeta(p) {
			// A literal path with no match: keep it so Stat can report it
			// missing. Pure glob patterns matching nothing stay absent.
			files = append(files, p)
			continue
		}
		files = append(files, matches...)
	}
	return files, nil
}

// hasMeta reports whether the path contains glob metacharacters.
func hasMeta(path string) bool {
	for _, r := range path {
		switch r {
		case '*', '?', '[', '\\':
			return true
		}
	}
	return false
}
