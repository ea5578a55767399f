package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycle(t *testing.T) {
	job := NewJob("render-1", "/ctx", "scene.in", 2, 4)
	require.Equal(t, JobInitialized, job.State)
	require.Len(t, job.Tasks, 2)
	assert.Equal(t, "render-1-0", job.Tasks[0].Name)
	assert.Equal(t, "render-1-1", job.Tasks[1].Name)

	job.MarkQueued()
	assert.Equal(t, JobQueued, job.State)
	assert.False(t, job.QueuedAt.IsZero())

	job.MarkRunning()
	assert.Equal(t, JobRunning, job.State)

	job.MarkTerminating()
	assert.Equal(t, JobTerminating, job.State)
	terminatedAt := job.TerminatedAt
	job.MarkTerminating() // idempotent
	assert.Equal(t, terminatedAt, job.TerminatedAt)
}

func TestJobMarkRunningFromWrongStateViolates(t *testing.T) {
	job := NewJob("render-2", "/ctx", "scene.in", 1, 1)
	assert.PanicsWithValue(t, &InvariantViolation{Reason: "job render-2: cannot start from state initialized"}, func() {
		job.MarkRunning()
	})
}

func TestTaskLifecycle(t *testing.T) {
	task := NewTask("render-3", 0)
	task.MarkQueued()
	assert.Equal(t, TaskQueued, task.State)

	task.MarkRunning()
	assert.Equal(t, TaskRunning, task.State)

	task.MarkCompleted()
	assert.Equal(t, TaskCompleted, task.State)
}

func TestTaskTerminatingIsIdempotentAndSticky(t *testing.T) {
	task := NewTask("render-4", 0)
	task.MarkQueued()
	task.MarkRunning()
	task.MarkTerminating()
	assert.Equal(t, TaskTerminating, task.State)

	task.MarkTerminated()
	assert.Equal(t, TaskTerminated, task.State)

	// terminating after terminated must not regress the state
	task.MarkTerminating()
	assert.Equal(t, TaskTerminated, task.State)
}

func TestJobAllTasksTerminal(t *testing.T) {
	job := NewJob("render-5", "/ctx", "scene.in", 2, 1)
	assert.False(t, job.AllTasksTerminal())

	job.Tasks[0].MarkQueued()
	job.Tasks[0].MarkRunning()
	job.Tasks[0].MarkCompleted()
	job.Tasks[1].MarkQueued()
	job.Tasks[1].MarkTerminating()
	job.Tasks[1].MarkTerminated()

	assert.True(t, job.AllTasksTerminal())
}

func TestSlotPoolLIFO(t *testing.T) {
	pool := NewSlotPool([]Slot{{Host: "h", Port: 1}, {Host: "h", Port: 2}})
	require.Equal(t, 2, pool.Len())

	s := pool.Claim()
	assert.Equal(t, Slot{Host: "h", Port: 2}, s)
	assert.Equal(t, 1, pool.Len())

	pool.Release(s)
	assert.Equal(t, 2, pool.Len())
}
