package filejob

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ytget/jobmon/internal/monitor"
)

// Job service constants
const (
	JobIDPrefix        = "job-"
	DefaultMaxParallel = 2
	MaxParallelLimit   = 10
)

var (
	// ErrJobNotFound is returned for unknown job IDs
	ErrJobNotFound = errors.New("job not found")

	// ErrJobNotActive is returned when a job can not be paused, resumed or stopped in its state
	ErrJobNotActive = errors.New("job is not active")

	// ErrStopped is recorded on jobs stopped by the user
	ErrStopped = errors.New("job stopped by user")
)

// WorkFunc performs the file operation of a job. It reports progress through
// the job's worker methods, should call WaitIfPaused between files and must
// return when ctx is cancelled.
type WorkFunc func(ctx context.Context, job *Job) error

type entry struct {
	job    *Job
	work   WorkFunc
	cancel context.CancelFunc
}

// Service runs file jobs on worker goroutines and registers them with a Registry
type Service struct {
	entries      map[string]*entry
	order        []string
	pending      []*entry
	entriesMutex sync.RWMutex
	maxParallel  int
	activeCount  int
	registry     Registry
	logger       zerolog.Logger
}

// NewService creates a new file job service
func NewService(registry Registry, maxParallel int, logger zerolog.Logger) *Service {
	return &Service{
		entries:     make(map[string]*entry),
		maxParallel: clampParallel(maxParallel),
		registry:    registry,
		logger:      logger.With().Str("component", "filejob").Logger(),
	}
}

// Submit creates a job for plan, registers it and starts it when a worker slot is free
func (s *Service) Submit(plan Plan, work WorkFunc) (*Job, error) {
	if work == nil {
		return nil, fmt.Errorf("work function is required")
	}
	if plan.Name == "" {
		return nil, fmt.Errorf("job name is required")
	}
	if !plan.Kind.IsValid() {
		return nil, fmt.Errorf("unsupported job kind: %q", plan.Kind)
	}
	if plan.TotalBytes < 0 {
		return nil, fmt.Errorf("total bytes must not be negative: %d", plan.TotalBytes)
	}

	e := &entry{
		job:  NewJob(generateJobID(), plan),
		work: work,
	}

	var ctx context.Context

	s.entriesMutex.Lock()
	s.entries[e.job.ID()] = e
	s.order = append(s.order, e.job.ID())
	start := s.activeCount < s.maxParallel
	if start {
		ctx = s.reserveLocked(e)
	} else {
		s.pending = append(s.pending, e)
	}
	s.entriesMutex.Unlock()

	if s.registry != nil {
		s.registry.AddJob(e.job)
	}

	s.logger.Info().
		Str("job_id", e.job.ID()).
		Str("name", plan.Name).
		Str("kind", plan.Kind.String()).
		Int("files", len(plan.Files)).
		Int64("total_bytes", plan.TotalBytes).
		Bool("queued", !start).
		Msg("File job submitted")

	if start {
		go s.run(ctx, e)
	}
	return e.job, nil
}

// GetJob returns a job by ID
func (s *Service) GetJob(id string) (*Job, bool) {
	s.entriesMutex.RLock()
	defer s.entriesMutex.RUnlock()
	e, exists := s.entries[id]
	if !exists {
		return nil, false
	}
	return e.job, true
}

// AllJobs returns all jobs in submission order
func (s *Service) AllJobs() []*Job {
	s.entriesMutex.RLock()
	defer s.entriesMutex.RUnlock()

	jobs := make([]*Job, 0, len(s.order))
	for _, id := range s.order {
		jobs = append(jobs, s.entries[id].job)
	}
	return jobs
}

// StopJob interrupts a queued, running or paused job
func (s *Service) StopJob(id string) error {
	s.entriesMutex.Lock()
	e, exists := s.entries[id]
	if !exists {
		s.entriesMutex.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}

	state := e.job.State()
	if state.IsTerminal() {
		s.entriesMutex.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotActive, state)
	}

	// Queued jobs never got a worker
	if i := slices.Index(s.pending, e); i >= 0 {
		s.pending = slices.Delete(s.pending, i, i+1)
		s.entriesMutex.Unlock()
		e.job.Interrupt(ErrStopped)
		return nil
	}

	cancel := e.cancel
	s.entriesMutex.Unlock()

	if cancel != nil {
		cancel()
	}
	return nil
}

// PauseJob pauses a running job
func (s *Service) PauseJob(id string) error {
	job, exists := s.GetJob(id)
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if !job.Pause() {
		return fmt.Errorf("%w: %s", ErrJobNotActive, job.State())
	}
	return nil
}

// ResumeJob resumes a paused job
func (s *Service) ResumeJob(id string) error {
	job, exists := s.GetJob(id)
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if !job.Resume() {
		return fmt.Errorf("%w: %s", ErrJobNotActive, job.State())
	}
	return nil
}

// Forget drops an ended job from the service. Unknown and unfinished jobs are
// kept and false is returned.
func (s *Service) Forget(id string) bool {
	s.entriesMutex.Lock()
	defer s.entriesMutex.Unlock()

	e, exists := s.entries[id]
	if !exists || !e.job.State().IsTerminal() {
		return false
	}
	delete(s.entries, id)
	s.order = slices.DeleteFunc(s.order, func(other string) bool { return other == id })
	return true
}

// ForgetRemoved returns a monitor listener that forgets each job once the
// monitor has dropped it, so a long running service does not keep every
// ended job.
func (s *Service) ForgetRemoved() monitor.Listener {
	return &monitor.ListenerFuncs{
		OnRemoved: func(job monitor.Job) {
			if s.Forget(job.ID()) {
				s.logger.Debug().Str("job_id", job.ID()).Msg("Forgot removed job")
			}
		},
	}
}

// StopAll interrupts every job that has not ended yet
func (s *Service) StopAll() {
	for _, job := range s.AllJobs() {
		if job.State().IsTerminal() {
			continue
		}
		if err := s.StopJob(job.ID()); err != nil && !errors.Is(err, ErrJobNotActive) {
			s.logger.Warn().Err(err).Str("job_id", job.ID()).Msg("Failed to stop job")
		}
	}
}

// SetMaxParallel sets the maximum number of jobs running at once
func (s *Service) SetMaxParallel(max int) {
	s.entriesMutex.Lock()
	s.maxParallel = clampParallel(max)
	s.entriesMutex.Unlock()

	s.startPending()
}

// reserveLocked takes a worker slot for e and gives it a cancellable context
func (s *Service) reserveLocked(e *entry) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	s.activeCount++
	return ctx
}

// run executes a job and releases its worker slot
func (s *Service) run(ctx context.Context, e *entry) {
	defer func() {
		e.cancel()

		s.entriesMutex.Lock()
		s.activeCount--
		s.entriesMutex.Unlock()

		// Try to start next pending job
		s.startPending()
	}()

	job := e.job
	job.Start()

	var err error
	if ctx.Err() == nil {
		err = s.execute(ctx, e)
	}

	switch {
	case ctx.Err() != nil:
		job.Interrupt(ErrStopped)
	case err != nil:
		job.Interrupt(err)
	default:
		job.Finish()
	}

	event := s.logger.Info()
	if err != nil && ctx.Err() == nil {
		event = s.logger.Warn().Err(err)
	}
	event.
		Str("job_id", job.ID()).
		Str("state", job.State().String()).
		Msg("File job ended")
}

// execute calls the work function, converting a panic into an error
func (s *Service) execute(ctx context.Context, e *entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			s.logger.Error().
				Str("job_id", e.job.ID()).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(buf[:n])).
				Msg("Recovered from panic in file job worker")
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()
	return e.work(ctx, e.job)
}

// startPending starts queued jobs while worker slots are free
func (s *Service) startPending() {
	for {
		s.entriesMutex.Lock()
		if s.activeCount >= s.maxParallel || len(s.pending) == 0 {
			s.entriesMutex.Unlock()
			return
		}
		e := s.pending[0]
		s.pending = s.pending[1:]
		ctx := s.reserveLocked(e)
		s.entriesMutex.Unlock()

		go s.run(ctx, e)
	}
}

func clampParallel(max int) int {
	if max < 1 {
		return 1
	}
	if max > MaxParallelLimit {
		return MaxParallelLimit
	}
	return max
}

// generateJobID generates a unique, time ordered job ID using UUID v7
func generateJobID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to timestamp if UUID generation fails
		return fmt.Sprintf(JobIDPrefix+"%d", time.Now().UnixNano())
	}
	return JobIDPrefix + id.String()
}

// terminal reports whether every job has ended
func (s *Service) terminal() bool {
	for _, job := range s.AllJobs() {
		if !job.State().IsTerminal() {
			return false
		}
	}
	return true
}

// Wait blocks until every submitted job has ended or ctx is done
func (s *Service) Wait(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for !s.terminal() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}
