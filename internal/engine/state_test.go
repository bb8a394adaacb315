package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/taskmill/internal/resolver"
	"github.com/vk/taskmill/internal/task"
)

func planOf(t *testing.T, names ...string) *resolver.Plan {
	t.Helper()
	g := task.NewGraph()
	for _, name := range names {
		require.NoError(t, g.Add(&task.Task{Name: name}))
	}
	plan, err := resolver.Resolve(context.Background(), g, names, true)
	require.NoError(t, err)
	return plan
}

func TestStatus_SatisfiesDependents(t *testing.T) {
	t.Parallel()

	assert.True(t, Completed.satisfiesDependents())
	assert.True(t, CompletedWithWarnings.satisfiesDependents())
	assert.True(t, Skipped.satisfiesDependents())

	assert.False(t, Pending.satisfiesDependents())
	assert.False(t, Running.satisfiesDependents())
	assert.False(t, Failed.satisfiesDependents())
	assert.False(t, Cancelled.satisfiesDependents())
}

func TestRunState_TransitionBookkeeping(t *testing.T) {
	t.Parallel()

	st := newRunState(planOf(t, "a", "b", "c", "d"))

	st.transition(0, Completed, nil)
	st.transition(1, Skipped, nil)
	st.transition(2, CompletedWithWarnings, nil)
	st.transition(3, Running, nil)

	completed, skipped := st.report()
	assert.Equal(t, []string{"a", "c"}, completed)
	assert.Equal(t, []string{"b"}, skipped)

	_, _, ok := st.failure()
	assert.False(t, ok, "no failure was recorded")
}

func TestRunState_FirstFailureWins(t *testing.T) {
	t.Parallel()

	st := newRunState(planOf(t, "a", "b"))
	errA := errors.New("boom a")
	errB := errors.New("boom b")

	st.transition(1, Failed, errB)
	st.transition(0, Failed, errA)

	name, err, ok := st.failure()
	require.True(t, ok)
	assert.Equal(t, "b", name, "the first observed failure is reported, not the lowest plan id")
	assert.Same(t, errB, err)
}

func TestRunState_DepsSatisfied(t *testing.T) {
	t.Parallel()

	st := newRunState(planOf(t, "a", "b"))

	assert.True(t, st.depsSatisfied(nil), "a task with no planned deps is always eligible")
	assert.False(t, st.depsSatisfied([]int{0, 1}))

	st.transition(0, Completed, nil)
	assert.False(t, st.depsSatisfied([]int{0, 1}), "one pending dep still blocks")

	st.transition(1, Failed, errors.New("boom"))
	assert.False(t, st.depsSatisfied([]int{0, 1}), "a failed dep blocks dependents")

	st.transition(1, Skipped, nil)
	assert.True(t, st.depsSatisfied([]int{0, 1}), "an up-to-date dep satisfies dependents")
}

func TestStatus_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "completed-with-warnings", CompletedWithWarnings.String())
	assert.Equal(t, "unknown", Status(99).String())
}
