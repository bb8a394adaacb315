package taskfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/taskmill/internal/task"
)

// hclTask is one `task "name" { ... }` block.
type hclTask struct {
	Name         string            `hcl:"name,label"`
	Description  string            `hcl:"description,optional"`
	Deps         []string          `hcl:"deps,optional"`
	Commands     []string          `hcl:"commands,optional"`
	Env          map[string]string `hcl:"env,optional"`
	Dir          string            `hcl:"dir,optional"`
	Sources      []string          `hcl:"sources,optional"`
	Generates    []string          `hcl:"generates,optional"`
	IgnoreErrors bool              `hcl:"ignore_errors,optional"`
	Parallel     bool              `hcl:"parallel,optional"`
}

// hclRoot decodes the top level of a taskfile.
type hclRoot struct {
	Tasks  []*hclTask `hcl:"task,block"`
	Remain hcl.Body   `hcl:",remain"`
}

// loadHCL parses an HCL taskfile. Block order is preserved as registration
// order, and expressions may reference the ambient environment as env.VAR.
func loadHCL(path string) (*task.Graph, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse taskfile %s: %w", path, diags)
	}

	var root hclRoot
	if diags := gohcl.DecodeBody(file.Body, hclEvalContext(), &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode taskfile %s: %w", path, diags)
	}

	graph := task.NewGraph()
	for _, b := range root.Tasks {
		t := &task.Task{
			Name:         b.Name,
			Description:  b.Description,
			Deps:         b.Deps,
			Commands:     b.Commands,
			Env:          b.Env,
			Dir:          b.Dir,
			Sources:      b.Sources,
			Generates:    b.Generates,
			IgnoreErrors: b.IgnoreErrors,
			Parallel:     b.Parallel,
		}
		if err := graph.Add(t); err != nil {
			return nil, fmt.Errorf("taskfile %s: %w", path, err)
		}
	}
	return graph, nil
}

// hclEvalContext exposes the ambient process environment to taskfile
// expressions under the `env` object, e.g. commands = ["deploy ${env.HOME}"].
func hclEvalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			continue
		}
		vars[k] = cty.StringVal(v)
	}

	envVal := cty.EmptyObjectVal
	if len(vars) > 0 {
		envVal = cty.ObjectVal(vars)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": envVal},
	}
}
