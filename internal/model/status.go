package model

// JobState represents the lifecycle state of a background file job
type JobState string

const (
	// JobStateNotStarted means the job is queued but its worker has not run yet
	JobStateNotStarted JobState = "NotStarted"

	// JobStateRunning means the worker is processing files
	JobStateRunning JobState = "Running"

	// JobStatePaused means the worker is blocked until the job is resumed
	JobStatePaused JobState = "Paused"

	// JobStateFinished means the job processed all of its files
	JobStateFinished JobState = "Finished"

	// JobStateInterrupted means the job was stopped by the user or failed
	JobStateInterrupted JobState = "Interrupted"
)

// String returns the string representation of JobState
func (js JobState) String() string {
	return string(js)
}

// IsActive returns true if the job has started and has not reached a terminal state
func (js JobState) IsActive() bool {
	return js == JobStateRunning || js == JobStatePaused
}

// IsTerminal returns true if the job reached a state it never leaves (finished or interrupted)
func (js JobState) IsTerminal() bool {
	return js == JobStateFinished || js == JobStateInterrupted
}

// JobKind identifies the file operation a job performs
type JobKind string

const (
	JobKindCopy   JobKind = "copy"
	JobKindMove   JobKind = "move"
	JobKindDelete JobKind = "delete"
)

// String returns the string representation of JobKind
func (jk JobKind) String() string {
	return string(jk)
}

// IsValid reports whether jk is one of the known job kinds
func (jk JobKind) IsValid() bool {
	switch jk {
	case JobKindCopy, JobKindMove, JobKindDelete:
		return true
	default:
		return false
	}
}
