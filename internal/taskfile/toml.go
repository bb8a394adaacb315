package taskfile

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/vk/taskmill/internal/task"
)

// loadTOML parses a TOML taskfile. Keys the model does not know are
// rejected, mirroring the strict YAML decoding.
func loadTOML(path string) (*task.Graph, error) {
	var model fileModel
	md, err := toml.DecodeFile(path, &model)
	if err != nil {
		return nil, fmt.Errorf("failed to parse taskfile %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("taskfile %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	return model.toGraph(path)
}
