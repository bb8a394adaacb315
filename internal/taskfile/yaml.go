package taskfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vk/taskmill/internal/task"
)

// loadYAML parses a YAML taskfile. Unknown fields are rejected so typos in
// task definitions surface instead of silently doing nothing.
func loadYAML(path string) (*task.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading taskfile: %w", err)
	}
	defer f.Close()

	var model fileModel
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&model); err != nil {
		return nil, fmt.Errorf("failed to parse taskfile %s: %w", path, err)
	}

	return model.toGraph(path)
}
