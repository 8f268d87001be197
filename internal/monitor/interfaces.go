package monitor

import (
	"github.com/ytget/jobmon/internal/model"
)

// Job is a unit of background work observed by the Monitor.
//
// Implementations must make State, Progress and RecomputeProgress safe to call
// from the monitor goroutine while their worker goroutine is writing. ID must
// be stable and unique: the Monitor uses it as the job identity.
type Job interface {
	ID() string
	State() model.JobState

	// Progress returns the snapshot computed by the last RecomputeProgress call.
	Progress() model.Progress

	// RecomputeProgress refreshes the snapshot. fullUpdate is a hint that
	// throughput and ETA should be recomputed too; the return value reports
	// whether a full update actually happened.
	RecomputeProgress(fullUpdate bool) bool

	AddStateListener(l StateListener)
	RemoveStateListener(l StateListener)
}

// StateListener receives job lifecycle transitions.
type StateListener interface {
	JobStateChanged(job Job, oldState, newState model.JobState)
}

// Listener receives monitor events. Callbacks run on the monitor goroutine and
// must return quickly: a slow listener delays the next poll tick.
//
// Listeners are compared by identity, so implementations should be pointer types.
type Listener interface {
	JobAdded(job Job)
	JobRemoved(job Job)
	JobProgress(job Job, fullUpdate bool)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
// Register it by pointer.
type ListenerFuncs struct {
	OnAdded    func(job Job)
	OnRemoved  func(job Job)
	OnProgress func(job Job, fullUpdate bool)
}

// JobAdded implements Listener
func (f *ListenerFuncs) JobAdded(job Job) {
	if f.OnAdded != nil {
		f.OnAdded(job)
	}
}

// JobRemoved implements Listener
func (f *ListenerFuncs) JobRemoved(job Job) {
	if f.OnRemoved != nil {
		f.OnRemoved(job)
	}
}

// JobProgress implements Listener
func (f *ListenerFuncs) JobProgress(job Job, fullUpdate bool) {
	if f.OnProgress != nil {
		f.OnProgress(job, fullUpdate)
	}
}
