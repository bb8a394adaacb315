package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/taskmill/internal/task"
)

// fakeRunner records command invocations instead of spawning subprocesses.
type fakeRunner struct {
	mu          sync.Mutex
	calls       []string
	failWith    map[string]error
	delay       time.Duration
	inFlight    int
	maxInFlight int
	// started is closed on the first invocation, when non-nil.
	started     chan struct{}
	startedOnce sync.Once
}

func (r *fakeRunner) Run(ctx context.Context, t *task.Task, command string) error {
	r.mu.Lock()
	r.calls = append(r.calls, command)
	r.inFlight++
	if r.inFlight > r.maxInFlight {
		r.maxInFlight = r.inFlight
	}
	fail := r.failWith[command]
	delay := r.delay
	r.mu.Unlock()

	if r.started != nil {
		r.startedOnce.Do(func() { close(r.started) })
	}

	defer func() {
		r.mu.Lock()
		r.inFlight--
		r.mu.Unlock()
	}()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return &CommandError{Task: t.Name, Command: command, ExitCode: -1, Err: ctx.Err()}
		}
	}
	if fail != nil {
		return &CommandError{Task: t.Name, Command: command, ExitCode: 1, Err: fail}
	}
	return nil
}

func (r *fakeRunner) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *fakeRunner) observedMax() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxInFlight
}

// graphOf builds a graph where each task runs a single command named after
// the task ("run <name>").
func graphOf(t *testing.T, deps map[string][]string) *task.Graph {
	t.Helper()
	g := task.NewGraph()
	for name, d := range deps {
		require.NoError(t, g.Add(&task.Task{
			Name:     name,
			Deps:     d,
			Commands: []string{"run " + name},
		}))
	}
	return g
}

func TestRun_SequentialOrder(t *testing.T) {
	t.Parallel()

	g := graphOf(t, map[string][]string{
		"clean":  nil,
		"test":   {"clean"},
		"build":  {"clean", "test"},
		"deploy": {"build"},
	})
	runner := &fakeRunner{}
	eng := New(g, runner)

	res, err := eng.Run(context.Background(), []string{"deploy"}, task.RunConfig{})
	require.NoError(t, err)

	assert.Equal(t, task.Success, res.Status)
	assert.Equal(t, []string{"run clean", "run test", "run build", "run deploy"}, runner.recorded())
	assert.Equal(t, []string{"clean", "test", "build", "deploy"}, res.Completed)
}

func TestRun_ResolutionErrorBeforeExecution(t *testing.T) {
	t.Parallel()

	g := graphOf(t, map[string][]string{"build": {"ghost"}})
	runner := &fakeRunner{}
	eng := New(g, runner)

	_, err := eng.Run(context.Background(), []string{"build"}, task.RunConfig{})

	require.Error(t, err)
	assert.Empty(t, runner.recorded(), "no command may run when resolution fails")
}

func TestRun_SequentialFailureAbortsRun(t *testing.T) {
	t.Parallel()

	g := graphOf(t, map[string][]string{
		"a": nil,
		"b": {"a"},
		"c": {"b"},
	})
	runner := &fakeRunner{failWith: map[string]error{"run b": errors.New("boom")}}
	eng := New(g, runner)

	res, err := eng.Run(context.Background(), []string{"c"}, task.RunConfig{})
	require.NoError(t, err)

	assert.Equal(t, task.Failure, res.Status)
	require.NotNil(t, res.Failed)
	assert.Equal(t, "b", res.Failed.Name)
	assert.Equal(t, "run b", res.Failed.Command)
	assert.Equal(t, []string{"run a", "run b"}, runner.recorded(), "c must never start")
}

func TestRun_IgnoreErrorsYieldsPartialFailure(t *testing.T) {
	t.Parallel()

	g := task.NewGraph()
	require.NoError(t, g.Add(&task.Task{
		Name:         "flaky",
		Commands:     []string{"run flaky-1", "run flaky-2"},
		IgnoreErrors: true,
	}))
	require.NoError(t, g.Add(&task.Task{
		Name:     "after",
		Deps:     []string{"flaky"},
		Commands: []string{"run after"},
	}))
	runner := &fakeRunner{failWith: map[string]error{"run flaky-1": errors.New("boom")}}
	eng := New(g, runner)

	res, err := eng.Run(context.Background(), []string{"after"}, task.RunConfig{})
	require.NoError(t, err)

	assert.Equal(t, task.PartialFailure, res.Status)
	assert.Nil(t, res.Failed)
	// The second command of flaky still ran, and the dependent was dispatched.
	assert.Equal(t, []string{"run flaky-1", "run flaky-2", "run after"}, runner.recorded())
	assert.Equal(t, []string{"flaky", "after"}, res.Completed)
}

func TestRun_DryRunSpawnsNothing(t *testing.T) {
	t.Parallel()

	g := graphOf(t, map[string][]string{
		"a": nil,
		"b": {"a"},
	})
	runner := &fakeRunner{}
	eng := New(g, runner)

	res, err := eng.Run(context.Background(), []string{"b"}, task.RunConfig{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, task.Success, res.Status)
	assert.Empty(t, runner.recorded())
	assert.Equal(t, []string{"a", "b"}, res.Completed, "dry-run tasks still count as completed")
}

// upToDateTask builds a task whose generated file is newer than its source,
// so the staleness check would skip it.
func upToDateTask(t *testing.T, name string, deps []string) *task.Task {
	t.Helper()
	dir := t.TempDir()
	now := time.Now()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in.txt"), []byte("x"), 0o600))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "in.txt"), now.Add(-time.Hour), now.Add(-time.Hour)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out.txt"), []byte("x"), 0o600))

	return &task.Task{
		Name:      name,
		Deps:      deps,
		Commands:  []string{"run " + name},
		Dir:       dir,
		Sources:   []string{"in.txt"},
		Generates: []string{"out.txt"},
	}
}

func TestRun_UpToDateTaskIsSkipped(t *testing.T) {
	t.Parallel()

	g := task.NewGraph()
	require.NoError(t, g.Add(upToDateTask(t, "gen", nil)))
	require.NoError(t, g.Add(&task.Task{Name: "use", Deps: []string{"gen"}, Commands: []string{"run use"}}))
	runner := &fakeRunner{}
	eng := New(g, runner)

	res, err := eng.Run(context.Background(), []string{"use"}, task.RunConfig{})
	require.NoError(t, err)

	assert.Equal(t, task.Success, res.Status)
	assert.Equal(t, []string{"run use"}, runner.recorded())
	assert.Equal(t, []string{"gen"}, res.Skipped)
	assert.Equal(t, []string{"use"}, res.Completed, "a skipped dependency still satisfies dependents")
}

func TestRun_ForceBypassesStalenessCheck(t *testing.T) {
	t.Parallel()

	g := task.NewGraph()
	require.NoError(t, g.Add(upToDateTask(t, "gen", nil)))
	runner := &fakeRunner{}
	eng := New(g, runner)

	res, err := eng.Run(context.Background(), []string{"gen"}, task.RunConfig{Force: true})
	require.NoError(t, err)

	assert.Equal(t, task.Success, res.Status)
	assert.Equal(t, []string{"run gen"}, runner.recorded())
	assert.Empty(t, res.Skipped)
}

func TestRun_ParallelRespectsConcurrencyBound(t *testing.T) {
	t.Parallel()

	deps := map[string][]string{}
	roots := make([]string, 0, 8)
	for _, name := range []string{"t1", "t2", "t3", "t4", "t5", "t6", "t7", "t8"} {
		deps[name] = nil
		roots = append(roots, name)
	}
	g := graphOf(t, deps)
	runner := &fakeRunner{delay: 30 * time.Millisecond}
	eng := New(g, runner)

	res, err := eng.Run(context.Background(), roots, task.RunConfig{Parallel: true, MaxConcurrency: 3})
	require.NoError(t, err)

	assert.Equal(t, task.Success, res.Status)
	assert.Len(t, res.Completed, 8)
	assert.LessOrEqual(t, runner.observedMax(), 3, "more than MaxConcurrency commands were in flight")
}

func TestRun_ParallelHonorsDependencyOrder(t *testing.T) {
	t.Parallel()

	g := graphOf(t, map[string][]string{
		"gen":     nil,
		"lint":    {"gen"},
		"build":   {"gen"},
		"release": {"lint", "build"},
	})
	runner := &fakeRunner{delay: 5 * time.Millisecond}
	eng := New(g, runner)

	res, err := eng.Run(context.Background(), []string{"release"}, task.RunConfig{Parallel: true, MaxConcurrency: 4})
	require.NoError(t, err)
	require.Equal(t, task.Success, res.Status)

	calls := runner.recorded()
	require.Len(t, calls, 4)
	assert.Equal(t, "run gen", calls[0], "gen must start before its dependents")
	assert.Equal(t, "run release", calls[3], "release must start last")
}

func TestRun_ParallelFailureBlocksDependentsAndStopsDispatch(t *testing.T) {
	t.Parallel()

	g := task.NewGraph()
	require.NoError(t, g.Add(&task.Task{Name: "bad", Commands: []string{"run bad"}}))
	require.NoError(t, g.Add(&task.Task{Name: "slow", Commands: []string{"run slow"}}))
	require.NoError(t, g.Add(&task.Task{Name: "child", Deps: []string{"bad"}, Commands: []string{"run child"}}))
	require.NoError(t, g.Add(&task.Task{Name: "other", Commands: []string{"run other"}}))

	runner := &fakeRunner{failWith: map[string]error{"run bad": errors.New("boom")}}
	runner.delay = 0
	// slow keeps one pool slot busy so "other" stays queued until after the
	// failure is observed.
	slowRunner := &slowOnCommand{inner: runner, command: "run slow", d: 80 * time.Millisecond}
	eng := New(g, slowRunner)

	res, err := eng.Run(context.Background(), []string{"bad", "slow", "child", "other"},
		task.RunConfig{Parallel: true, MaxConcurrency: 2})
	require.NoError(t, err)

	assert.Equal(t, task.Failure, res.Status)
	require.NotNil(t, res.Failed)
	assert.Equal(t, "bad", res.Failed.Name)

	calls := runner.recorded()
	assert.NotContains(t, calls, "run child", "dependent of a failed task must never dispatch")
	assert.NotContains(t, calls, "run other", "no new dispatch after an observed failure")
	assert.Contains(t, res.Completed, "slow", "in-flight sibling drains to completion")
}

// slowOnCommand delays a single command, delegating everything else.
type slowOnCommand struct {
	inner   CommandRunner
	command string
	d       time.Duration
}

func (r *slowOnCommand) Run(ctx context.Context, t *task.Task, command string) error {
	if command == r.command {
		select {
		case <-time.After(r.d):
		case <-ctx.Done():
		}
	}
	return r.inner.Run(ctx, t, command)
}

func TestRun_CancellationBeforeDispatch(t *testing.T) {
	t.Parallel()

	g := graphOf(t, map[string][]string{"a": nil, "b": {"a"}})
	runner := &fakeRunner{}
	eng := New(g, runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := eng.Run(ctx, []string{"b"}, task.RunConfig{})
	require.NoError(t, err)

	assert.Equal(t, task.Cancelled, res.Status)
	assert.Empty(t, runner.recorded())
	assert.Empty(t, res.Completed)
}

func TestRun_CancellationMidRun(t *testing.T) {
	t.Parallel()

	g := graphOf(t, map[string][]string{
		"first":  nil,
		"second": {"first"},
		"third":  {"second"},
	})
	started := make(chan struct{})
	runner := &fakeRunner{delay: 200 * time.Millisecond, started: started}
	eng := New(g, runner)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	res, err := eng.Run(ctx, []string{"third"}, task.RunConfig{})
	require.NoError(t, err)

	assert.Equal(t, task.Cancelled, res.Status)
	assert.NotContains(t, runner.recorded(), "run third")
}

func TestExecute_EmptyPlan(t *testing.T) {
	t.Parallel()

	g := task.NewGraph()
	eng := New(g, &fakeRunner{})

	res, err := eng.Run(context.Background(), nil, task.RunConfig{})
	require.NoError(t, err)
	assert.Equal(t, task.Success, res.Status)
}

func TestRun_SkipDepsRunsOnlyRoots(t *testing.T) {
	t.Parallel()

	g := graphOf(t, map[string][]string{
		"clean": nil,
		"build": {"clean"},
	})
	runner := &fakeRunner{}
	eng := New(g, runner)

	res, err := eng.Run(context.Background(), []string{"build"}, task.RunConfig{SkipDeps: true})
	require.NoError(t, err)

	assert.Equal(t, task.Success, res.Status)
	assert.Equal(t, []string{"run build"}, runner.recorded())
}
