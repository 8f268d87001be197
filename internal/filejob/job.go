package filejob

import (
	"context"
	"sync"
	"time"

	"github.com/ytget/jobmon/internal/model"
	"github.com/ytget/jobmon/internal/monitor"
)

// Plan describes the work a job is going to do. Totals may be zero when unknown.
type Plan struct {
	Name  string
	Kind  model.JobKind
	Files []string

	// Targets holds the destination of each file relative to the destination
	// directory, index for index with Files. Files without a target keep
	// their base name.
	Targets []string

	// Dirs lists the source directories, deepest first
	Dirs []PlanDir

	TotalBytes int64
}

// PlanDir is a source directory and its place under the destination directory
type PlanDir struct {
	Path   string
	Target string
}

// Job is a file job driven by a worker goroutine and polled by the monitor.
// Worker-side methods (Start, SetCurrentFile, AddBytes, FileDone, Finish,
// Interrupt) and monitor-side methods may be called concurrently.
type Job struct {
	id        string
	plan      Plan
	createdAt time.Time

	mu          sync.Mutex
	state       model.JobState
	currentFile string
	filesDone   int
	bytesDone   int64
	lastError   string
	startedAt   time.Time
	finishedAt  time.Time
	pausedAt    time.Time
	pausedFor   time.Duration
	resumeCh    chan struct{} // closed on resume, nil while not paused
	listeners   []monitor.StateListener

	progress      model.Progress
	lastFullBytes int64
	lastFullAt    time.Time
	finalReported bool
}

// NewJob creates a job in the NotStarted state
func NewJob(id string, plan Plan) *Job {
	return &Job{
		id:        id,
		plan:      plan,
		createdAt: time.Now(),
		state:     model.JobStateNotStarted,
		progress: model.Progress{
			FilesTotal: len(plan.Files),
			BytesTotal: plan.TotalBytes,
			ETASec:     -1,
		},
	}
}

// ID implements monitor.Job
func (j *Job) ID() string {
	return j.id
}

// Name returns the display name of the job
func (j *Job) Name() string {
	return j.plan.Name
}

// Kind returns the file operation the job performs
func (j *Job) Kind() model.JobKind {
	return j.plan.Kind
}

// Plan returns the planned work
func (j *Job) Plan() Plan {
	return j.plan
}

// CreatedAt returns when the job was submitted
func (j *Job) CreatedAt() time.Time {
	return j.createdAt
}

// State implements monitor.Job
func (j *Job) State() model.JobState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// LastError returns the error that interrupted the job, if any
func (j *Job) LastError() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastError
}

// Progress implements monitor.Job
func (j *Job) Progress() model.Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

// RecomputeProgress implements monitor.Job. Labels and percentage are always
// refreshed; throughput and ETA only on full updates, and a full update is
// declined when no bytes moved since the previous one. The first poll after
// the job ends is always a full update so listeners see the final numbers.
func (j *Job) RecomputeProgress(fullUpdate bool) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	p := j.progress
	p.CurrentFile = j.currentFile
	p.FilesDone = j.filesDone
	p.FilesTotal = len(j.plan.Files)
	p.BytesDone = j.bytesDone
	p.BytesTotal = j.plan.TotalBytes
	p.Percent = j.percentLocked()
	p.Elapsed = j.elapsedLocked(now)
	p.UpdatedAt = now
	p.FullUpdate = false

	final := j.state.IsTerminal() && !j.finalReported
	if fullUpdate || final {
		moved := j.bytesDone - j.lastFullBytes
		if moved > 0 || final {
			p.BytesPerSecond = j.throughputLocked(now, moved, p.Elapsed)
			p.ETASec = etaSeconds(p.BytesTotal-p.BytesDone, p.BytesPerSecond)
			if j.state.IsTerminal() {
				p.ETASec = -1
				j.finalReported = true
			}
			p.FullUpdate = true
		}
		j.lastFullBytes = j.bytesDone
		j.lastFullAt = now
	}

	j.progress = p
	return p.FullUpdate
}

// AddStateListener implements monitor.Job
func (j *Job) AddStateListener(l monitor.StateListener) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, existing := range j.listeners {
		if existing == l {
			return
		}
	}
	j.listeners = append(j.listeners, l)
}

// RemoveStateListener implements monitor.Job
func (j *Job) RemoveStateListener(l monitor.StateListener) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i, existing := range j.listeners {
		if existing == l {
			j.listeners = append(j.listeners[:i:i], j.listeners[i+1:]...)
			return
		}
	}
}

// Start moves a NotStarted job to Running
func (j *Job) Start() {
	j.transition(func() bool {
		if j.state != model.JobStateNotStarted {
			return false
		}
		j.state = model.JobStateRunning
		j.startedAt = time.Now()
		return true
	})
}

// SetCurrentFile records the file the worker is processing
func (j *Job) SetCurrentFile(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.currentFile = path
}

// AddBytes records processed bytes
func (j *Job) AddBytes(n int64) {
	if n <= 0 {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.bytesDone += n
}

// FileDone records that the current file was fully processed
func (j *Job) FileDone() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.filesDone++
}

// Pause moves a Running job to Paused. Workers block in WaitIfPaused.
func (j *Job) Pause() bool {
	return j.transition(func() bool {
		if j.state != model.JobStateRunning {
			return false
		}
		j.state = model.JobStatePaused
		j.pausedAt = time.Now()
		j.resumeCh = make(chan struct{})
		return true
	})
}

// Resume moves a Paused job back to Running
func (j *Job) Resume() bool {
	return j.transition(func() bool {
		if j.state != model.JobStatePaused {
			return false
		}
		j.state = model.JobStateRunning
		j.releasePauseLocked(time.Now())
		return true
	})
}

// WaitIfPaused blocks the worker while the job is paused
func (j *Job) WaitIfPaused(ctx context.Context) error {
	j.mu.Lock()
	ch := j.resumeCh
	j.mu.Unlock()

	if ch == nil {
		return ctx.Err()
	}
	select {
	case <-ch:
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finish marks the job as Finished
func (j *Job) Finish() {
	j.transition(func() bool {
		if j.state.IsTerminal() {
			return false
		}
		now := time.Now()
		j.releasePauseLocked(now)
		j.state = model.JobStateFinished
		j.finishedAt = now
		return true
	})
}

// Interrupt marks the job as Interrupted, recording err when not nil
func (j *Job) Interrupt(err error) {
	j.transition(func() bool {
		if j.state.IsTerminal() {
			return false
		}
		now := time.Now()
		j.releasePauseLocked(now)
		j.state = model.JobStateInterrupted
		j.finishedAt = now
		if err != nil {
			j.lastError = err.Error()
		}
		return true
	})
}

// transition applies change under the lock and notifies state listeners
// outside of it when the state actually changed.
func (j *Job) transition(change func() bool) bool {
	j.mu.Lock()
	old := j.state
	if !change() || j.state == old {
		j.mu.Unlock()
		return false
	}
	state := j.state
	listeners := append([]monitor.StateListener(nil), j.listeners...)
	j.mu.Unlock()

	for _, l := range listeners {
		l.JobStateChanged(j, old, state)
	}
	return true
}

func (j *Job) releasePauseLocked(now time.Time) {
	if j.resumeCh == nil {
		return
	}
	j.pausedFor += now.Sub(j.pausedAt)
	j.pausedAt = time.Time{}
	close(j.resumeCh)
	j.resumeCh = nil
}

func (j *Job) percentLocked() int {
	if j.state == model.JobStateFinished {
		return 100
	}

	var percent int64
	switch {
	case j.plan.TotalBytes > 0:
		percent = j.bytesDone * 100 / j.plan.TotalBytes
	case len(j.plan.Files) > 0:
		percent = int64(j.filesDone * 100 / len(j.plan.Files))
	}
	return int(min(max(percent, 0), 100))
}

func (j *Job) elapsedLocked(now time.Time) time.Duration {
	if j.startedAt.IsZero() {
		return 0
	}
	end := now
	if !j.finishedAt.IsZero() {
		end = j.finishedAt
	}
	elapsed := end.Sub(j.startedAt) - j.pausedFor
	if !j.pausedAt.IsZero() {
		elapsed -= end.Sub(j.pausedAt)
	}
	return max(elapsed, 0)
}

// throughputLocked measures bytes per second since the previous full update,
// falling back to the average since start for the first measurement.
func (j *Job) throughputLocked(now time.Time, moved int64, elapsed time.Duration) float64 {
	if !j.lastFullAt.IsZero() {
		if interval := now.Sub(j.lastFullAt); interval > 0 && moved > 0 {
			return float64(moved) / interval.Seconds()
		}
	}
	if elapsed > 0 {
		return float64(j.bytesDone) / elapsed.Seconds()
	}
	return 0
}

func etaSeconds(remaining int64, bytesPerSecond float64) int {
	if remaining <= 0 || bytesPerSecond <= 0 {
		return -1
	}
	return int(float64(remaining)/bytesPerSecond + 0.5)
}
