package taskfile

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/taskmill/internal/ctxlog"
	"github.com/vk/taskmill/internal/task"
)

// DefaultNames are the taskfile names probed, in order, when the user
// points at a directory instead of a file.
var DefaultNames = []string{"taskmill.hcl", "taskmill.yaml", "taskmill.yml", "taskmill.toml"}

// Load reads the taskfile at path into a task graph. The format is chosen
// by extension.
func Load(ctx context.Context, path string) (*task.Graph, error) {
	logger := ctxlog.FromContext(ctx)

	var (
		graph *task.Graph
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		graph, err = loadHCL(path)
	case ".yaml", ".yml":
		graph, err = loadYAML(path)
	case ".toml":
		graph, err = loadTOML(path)
	default:
		return nil, fmt.Errorf("unsupported taskfile format %q (want .hcl, .yaml, .yml or .toml)", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("Taskfile loaded.", "path", path, "tasks", graph.Len())
	return graph, nil
}

// Find resolves the user-supplied path to a concrete taskfile. An empty
// path means the current directory; a directory is probed for DefaultNames.
func Find(path string) (string, error) {
	if path == "" {
		path = "."
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("taskfile path %s: %w", path, err)
	}
	if !info.IsDir() {
		return path, nil
	}
	for _, name := range DefaultNames {
		candidate := filepath.Join(path, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no taskfile found in %s (looked for %s)", path, strings.Join(DefaultNames, ", "))
}

// fileModel is the shared shape of YAML and TOML taskfiles: a map of task
// name to definition.
type fileModel struct {
	Tasks map[string]*fileTask `yaml:"tasks" toml:"tasks"`
}

// fileTask mirrors task.Task minus the name, which is the map key.
type fileTask struct {
	Description  string            `yaml:"description" toml:"description"`
	Deps         []string          `yaml:"deps" toml:"deps"`
	Commands     []string          `yaml:"commands" toml:"commands"`
	Env          map[string]string `yaml:"env" toml:"env"`
	Dir          string            `yaml:"dir" toml:"dir"`
	Sources      []string          `yaml:"sources" toml:"sources"`
	Generates    []string          `yaml:"generates" toml:"generates"`
	IgnoreErrors bool              `yaml:"ignore_errors" toml:"ignore_errors"`
	Parallel     bool              `yaml:"parallel" toml:"parallel"`
}

// toGraph converts a decoded file model into a graph. Map iteration order
// is not stable, so names are registered sorted to keep listings
// deterministic; execution order is decided by the resolver, not by
// registration order.
func (m *fileModel) toGraph(path string) (*task.Graph, error) {
	graph := task.NewGraph()

	names := make([]string, 0, len(m.Tasks))
	for name := range m.Tasks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ft := m.Tasks[name]
		if ft == nil {
			ft = &fileTask{}
		}
		t := &task.Task{
			Name:         name,
			Description:  ft.Description,
			Deps:         ft.Deps,
			Commands:     ft.Commands,
			Env:          ft.Env,
			Dir:          ft.Dir,
			Sources:      ft.Sources,
			Generates:    ft.Generates,
			IgnoreErrors: ft.IgnoreErrors,
			Parallel:     ft.Parallel,
		}
		if err := graph.Add(t); err != nil {
			return nil, fmt.Errorf("taskfile %s: %w", path, err)
		}
	}
	return graph, nil
}
