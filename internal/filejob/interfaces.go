package filejob

import (
	"github.com/ytget/jobmon/internal/monitor"
)

// Registry receives submitted jobs. *monitor.Monitor implements it.
type Registry interface {
	AddJob(job monitor.Job)
}

// Manager defines the interface for the file job service.
type Manager interface {
	Submit(plan Plan, work WorkFunc) (*Job, error)
	GetJob(id string) (*Job, bool)
	AllJobs() []*Job
	StopJob(id string) error
	PauseJob(id string) error
	ResumeJob(id string) error
	StopAll()

	// SetMaxParallel sets the maximum number of jobs running at once
	SetMaxParallel(max int)
}
