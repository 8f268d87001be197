package filejob

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/jobmon/internal/model"
	"github.com/ytget/jobmon/internal/monitor"
)

type transition struct {
	old, new model.JobState
}

// stateRecorder records state changes reported by a job
type stateRecorder struct {
	mu          sync.Mutex
	transitions []transition
}

func (r *stateRecorder) JobStateChanged(_ monitor.Job, oldState, newState model.JobState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, transition{oldState, newState})
}

func (r *stateRecorder) snapshot() []transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]transition(nil), r.transitions...)
}

func testPlan() Plan {
	return Plan{
		Name:       "backup",
		Kind:       model.JobKindCopy,
		Files:      []string{"/src/a.txt", "/src/b.txt"},
		TotalBytes: 100,
	}
}

func TestNewJob(t *testing.T) {
	job := NewJob("job-1", testPlan())

	if job.ID() != "job-1" {
		t.Errorf("Expected ID 'job-1', got '%s'", job.ID())
	}
	if job.Name() != "backup" {
		t.Errorf("Expected name 'backup', got '%s'", job.Name())
	}
	if job.Kind() != model.JobKindCopy {
		t.Errorf("Expected kind copy, got %s", job.Kind())
	}
	if job.State() != model.JobStateNotStarted {
		t.Errorf("Expected state NotStarted, got %s", job.State())
	}

	p := job.Progress()
	assert.Equal(t, 2, p.FilesTotal)
	assert.Equal(t, int64(100), p.BytesTotal)
	assert.Equal(t, -1, p.ETASec)
	assert.False(t, job.CreatedAt().IsZero())
}

func TestJobRecomputePartialUpdate(t *testing.T) {
	job := NewJob("job-1", testPlan())
	job.Start()
	job.SetCurrentFile("/src/a.txt")
	job.AddBytes(50)

	updated := job.RecomputeProgress(false)
	require.False(t, updated)

	p := job.Progress()
	assert.Equal(t, 50, p.Percent)
	assert.Equal(t, "/src/a.txt", p.CurrentFile)
	assert.Equal(t, int64(50), p.BytesDone)
	assert.False(t, p.FullUpdate)
	assert.Equal(t, -1, p.ETASec, "ETA is only computed on full updates")
}

func TestJobRecomputeFullUpdate(t *testing.T) {
	job := NewJob("job-1", testPlan())
	job.Start()
	time.Sleep(5 * time.Millisecond)
	job.AddBytes(25)

	require.True(t, job.RecomputeProgress(true))

	p := job.Progress()
	assert.True(t, p.FullUpdate)
	assert.Greater(t, p.BytesPerSecond, 0.0)
	assert.GreaterOrEqual(t, p.ETASec, 0)

	// Nothing moved since the previous full update
	assert.False(t, job.RecomputeProgress(true))
	assert.False(t, job.Progress().FullUpdate)

	job.AddBytes(25)
	assert.True(t, job.RecomputeProgress(true))
}

func TestJobFinalReport(t *testing.T) {
	job := NewJob("job-1", testPlan())
	job.Start()
	job.AddBytes(100)
	job.FileDone()
	job.FileDone()
	job.RecomputeProgress(true)
	job.Finish()

	// The first poll after the job ends is a full update even when not asked for
	require.True(t, job.RecomputeProgress(false))
	p := job.Progress()
	assert.Equal(t, 100, p.Percent)
	assert.Equal(t, 2, p.FilesDone)
	assert.Equal(t, -1, p.ETASec)

	assert.False(t, job.RecomputeProgress(false))
	assert.False(t, job.RecomputeProgress(true))
}

func TestJobPercentByFiles(t *testing.T) {
	plan := testPlan()
	plan.TotalBytes = 0
	job := NewJob("job-1", plan)
	job.Start()
	job.FileDone()
	job.RecomputeProgress(false)

	assert.Equal(t, 50, job.Progress().Percent)
}

func TestJobPercentWithoutTotals(t *testing.T) {
	job := NewJob("job-1", Plan{Name: "cleanup", Kind: model.JobKindDelete})
	job.Start()
	job.AddBytes(10)
	job.RecomputeProgress(false)

	assert.Equal(t, 0, job.Progress().Percent)
}

func TestJobIgnoresNonPositiveBytes(t *testing.T) {
	job := NewJob("job-1", testPlan())
	job.AddBytes(0)
	job.AddBytes(-5)
	job.RecomputeProgress(false)

	assert.Equal(t, int64(0), job.Progress().BytesDone)
}

func TestJobStateTransitions(t *testing.T) {
	job := NewJob("job-1", testPlan())
	rec := &stateRecorder{}
	job.AddStateListener(rec)
	job.AddStateListener(rec)

	job.Start()
	require.True(t, job.Pause())
	assert.False(t, job.Pause(), "pausing twice should fail")
	require.True(t, job.Resume())
	assert.False(t, job.Resume(), "resuming a running job should fail")
	job.Finish()
	job.Finish()
	job.Interrupt(errors.New("late"))

	expected := []transition{
		{model.JobStateNotStarted, model.JobStateRunning},
		{model.JobStateRunning, model.JobStatePaused},
		{model.JobStatePaused, model.JobStateRunning},
		{model.JobStateRunning, model.JobStateFinished},
	}
	assert.Equal(t, expected, rec.snapshot())
	assert.Equal(t, model.JobStateFinished, job.State())
	assert.Empty(t, job.LastError())
}

func TestJobRemoveStateListener(t *testing.T) {
	job := NewJob("job-1", testPlan())
	rec := &stateRecorder{}
	job.AddStateListener(rec)
	job.RemoveStateListener(rec)

	job.Start()

	assert.Empty(t, rec.snapshot())
}

func TestJobInterruptRecordsError(t *testing.T) {
	job := NewJob("job-1", testPlan())
	job.Start()
	job.Interrupt(errors.New("disk full"))

	assert.Equal(t, model.JobStateInterrupted, job.State())
	assert.Equal(t, "disk full", job.LastError())
}

func TestJobInterruptWhilePaused(t *testing.T) {
	job := NewJob("job-1", testPlan())
	job.Start()
	require.True(t, job.Pause())

	done := make(chan error, 1)
	go func() {
		done <- job.WaitIfPaused(context.Background())
	}()

	job.Interrupt(nil)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker was not released by Interrupt")
	}
	assert.Equal(t, model.JobStateInterrupted, job.State())
}

func TestWaitIfPaused(t *testing.T) {
	job := NewJob("job-1", testPlan())
	job.Start()

	// Not paused: returns immediately
	require.NoError(t, job.WaitIfPaused(context.Background()))

	require.True(t, job.Pause())

	released := make(chan error, 1)
	go func() {
		released <- job.WaitIfPaused(context.Background())
	}()

	select {
	case <-released:
		t.Fatal("WaitIfPaused returned while the job is paused")
	case <-time.After(20 * time.Millisecond):
	}

	require.True(t, job.Resume())

	select {
	case err := <-released:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitIfPaused did not return after Resume")
	}
}

func TestWaitIfPausedContextCancelled(t *testing.T) {
	job := NewJob("job-1", testPlan())
	job.Start()
	require.True(t, job.Pause())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, job.WaitIfPaused(ctx), context.Canceled)
}

func TestEtaSeconds(t *testing.T) {
	tests := []struct {
		remaining int64
		rate      float64
		expected  int
	}{
		{100, 10, 10},
		{105, 10, 11},
		{0, 10, -1},
		{100, 0, -1},
		{-5, 10, -1},
	}

	for _, test := range tests {
		result := etaSeconds(test.remaining, test.rate)
		if result != test.expected {
			t.Errorf("etaSeconds(%d, %v) = %d, expected %d", test.remaining, test.rate, result, test.expected)
		}
	}
}
