package monitor

import (
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ytget/jobmon/internal/model"
)

// panicStackSize bounds the stack captured when a listener or job panics
const panicStackSize = 4096

// Monitor observes registered jobs, polls their progress on a fixed cadence
// and fans out events to listeners.
type Monitor struct {
	cfg    Config
	logger zerolog.Logger

	queueMu sync.Mutex
	queue   []func()
	closed  bool
	wake    chan struct{}

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// Owned by the coordination goroutine
	jobs      []Job
	listeners []Listener
	pollState int
	ticker    *time.Ticker
	removals  map[string]*removal

	// Republished by the coordination goroutine after every job set change
	snapshot atomic.Pointer[[]Job]
	running  atomic.Bool
}

// removal is a pending delayed removal of a terminal job
type removal struct {
	job   Job
	timer *time.Timer
}

// New creates a monitor and starts its coordination goroutine.
func New(cfg Config, logger zerolog.Logger) (*Monitor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Monitor{
		cfg:      cfg,
		logger:   logger.With().Str("component", "monitor").Logger(),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		removals: make(map[string]*removal),
	}
	empty := []Job{}
	m.snapshot.Store(&empty)

	go m.loop()

	m.logger.Debug().
		Dur("refresh_interval", cfg.RefreshInterval).
		Int("full_refresh_every", cfg.FullRefreshEvery).
		Dur("remove_delay", cfg.RemoveDelay).
		Msg("Job monitor started")

	return m, nil
}

// Config returns the timing the monitor was created with
func (m *Monitor) Config() Config {
	return m.cfg
}

// AddListener registers a listener. Registering the same listener twice has no effect.
func (m *Monitor) AddListener(l Listener) {
	if l == nil {
		return
	}
	m.post(func() {
		if slices.Contains(m.listeners, l) {
			return
		}
		m.listeners = append(m.listeners, l)
	})
}

// RemoveListener unregisters a listener. Unknown listeners are ignored.
func (m *Monitor) RemoveListener(l Listener) {
	if l == nil {
		return
	}
	m.post(func() {
		if i := slices.Index(m.listeners, l); i >= 0 {
			m.listeners = slices.Delete(m.listeners, i, i+1)
		}
	})
}

// AddJob registers a job. The job is added asynchronously: callers must not
// expect JobCount to include it as soon as AddJob returns.
func (m *Monitor) AddJob(job Job) {
	if job == nil {
		return
	}
	m.post(func() { m.addJob(job) })
}

// RemoveJob unregisters a job asynchronously. Removing a job that is not
// registered is a no-op and fires no event.
func (m *Monitor) RemoveJob(job Job) {
	if job == nil {
		return
	}
	m.post(func() { m.removeJob(job) })
}

// JobCount returns the number of registered jobs
func (m *Monitor) JobCount() int {
	return len(*m.snapshot.Load())
}

// JobProgress returns the last polled progress of the job at index, or false
// if there is no such job.
func (m *Monitor) JobProgress(index int) (model.Progress, bool) {
	jobs := *m.snapshot.Load()
	if index < 0 || index >= len(jobs) {
		return model.Progress{}, false
	}
	return jobs[index].Progress(), true
}

// Jobs returns the registered jobs in registration order
func (m *Monitor) Jobs() []Job {
	return slices.Clone(*m.snapshot.Load())
}

// Running reports whether the poll cycle is active
func (m *Monitor) Running() bool {
	return m.running.Load()
}

// JobStateChanged implements StateListener. It is called by jobs from their
// own goroutines; terminal transitions schedule a delayed removal.
func (m *Monitor) JobStateChanged(job Job, oldState, newState model.JobState) {
	m.logger.Debug().
		Str("job_id", job.ID()).
		Str("old_state", oldState.String()).
		Str("new_state", newState.String()).
		Msg("Job state changed")

	if newState.IsTerminal() {
		m.post(func() { m.scheduleRemoval(job) })
	}
}

// Flush blocks until every task posted before the call has run. It must not
// be called from a listener callback.
func (m *Monitor) Flush() {
	flushed := make(chan struct{})
	m.post(func() { close(flushed) })

	select {
	case <-flushed:
	case <-m.stopped:
	}
}

// Close stops the poll cycle and every pending removal. Work posted after
// Close is dropped. Close is safe to call more than once. Like Flush it must
// not be called from a listener callback: it waits for the monitor goroutine,
// which is the one running the callback. A listener may start Close on a new
// goroutine instead.
func (m *Monitor) Close() error {
	m.closeOnce.Do(func() {
		m.queueMu.Lock()
		m.closed = true
		m.queue = nil
		m.queueMu.Unlock()

		close(m.done)
	})
	<-m.stopped
	return nil
}

// post schedules task on the coordination goroutine
func (m *Monitor) post(task func()) {
	m.queueMu.Lock()
	if m.closed {
		m.queueMu.Unlock()
		return
	}
	m.queue = append(m.queue, task)
	m.queueMu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// loop is the coordination goroutine
func (m *Monitor) loop() {
	defer close(m.stopped)
	defer m.shutdown()

	for {
		var tick <-chan time.Time
		if m.ticker != nil {
			tick = m.ticker.C
		}

		select {
		case <-m.done:
			return
		case <-m.wake:
			m.drain()
		case <-tick:
			m.tick()
		}
	}
}

// drain runs queued tasks in posting order
func (m *Monitor) drain() {
	for {
		m.queueMu.Lock()
		tasks := m.queue
		m.queue = nil
		m.queueMu.Unlock()

		if len(tasks) == 0 {
			return
		}
		for _, task := range tasks {
			select {
			case <-m.done:
				return
			default:
			}
			task()
		}
	}
}

// shutdown releases timers once the loop exits
func (m *Monitor) shutdown() {
	m.stopTimer()
	for id, r := range m.removals {
		r.timer.Stop()
		delete(m.removals, id)
	}
	m.logger.Debug().Int("jobs", len(m.jobs)).Msg("Job monitor stopped")
}

func (m *Monitor) addJob(job Job) {
	id := job.ID()
	if m.indexOf(id) >= 0 {
		m.logger.Debug().Str("job_id", id).Msg("Job already registered, ignoring")
		return
	}

	m.jobs = append(m.jobs, job)
	m.publish()

	m.fireJobAdded(job)
	m.startTimer()
	job.AddStateListener(m)

	// The job may have finished before this task ran
	if job.State().IsTerminal() {
		m.scheduleRemoval(job)
	}

	m.logger.Debug().Str("job_id", id).Int("jobs", len(m.jobs)).Msg("Job added")
}

func (m *Monitor) removeJob(job Job) {
	id := job.ID()
	i := m.indexOf(id)
	if i < 0 {
		return
	}
	registered := m.jobs[i]

	m.jobs = slices.Delete(m.jobs, i, i+1)
	m.publish()
	if len(m.jobs) == 0 {
		m.stopTimer()
	}

	m.fireJobRemoved(registered)
	registered.RemoveStateListener(m)
	m.cancelRemoval(id)

	m.logger.Debug().Str("job_id", id).Int("jobs", len(m.jobs)).Msg("Job removed")
}

// scheduleRemoval arms a one-shot timer that removes job after the configured
// delay. A job has at most one pending removal.
func (m *Monitor) scheduleRemoval(job Job) {
	id := job.ID()
	if m.indexOf(id) < 0 {
		return
	}
	if _, pending := m.removals[id]; pending {
		return
	}

	r := &removal{job: job}
	r.timer = time.AfterFunc(m.cfg.RemoveDelay, func() {
		m.post(func() {
			// A cancelled or replaced removal must not fire
			if m.removals[id] != r {
				return
			}
			delete(m.removals, id)
			m.removeJob(r.job)
		})
	})
	m.removals[id] = r

	m.logger.Debug().Str("job_id", id).Dur("delay", m.cfg.RemoveDelay).Msg("Job removal scheduled")
}

func (m *Monitor) cancelRemoval(id string) {
	if r, ok := m.removals[id]; ok {
		r.timer.Stop()
		delete(m.removals, id)
	}
}

func (m *Monitor) startTimer() {
	if m.ticker != nil {
		return
	}
	m.pollState = 0
	m.ticker = time.NewTicker(m.cfg.RefreshInterval)
	m.running.Store(true)
}

func (m *Monitor) stopTimer() {
	if m.ticker == nil {
		return
	}
	m.ticker.Stop()
	m.ticker = nil
	m.running.Store(false)
}

// tick runs one poll cycle: every FullRefreshEvery-th tick asks jobs for a
// full update, the others only refresh labels.
func (m *Monitor) tick() {
	m.pollState++

	fullUpdate := false
	if m.pollState >= m.cfg.FullRefreshEvery {
		fullUpdate = true
		m.pollState = 0
	}

	for _, job := range slices.Clone(m.jobs) {
		updated := m.recompute(job, fullUpdate)
		m.fireJobProgress(job, updated)
	}
}

// recompute asks job for a new snapshot, treating a panic as "no full update"
func (m *Monitor) recompute(job Job, fullUpdate bool) (updated bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logPanic(r, "recompute", job)
			updated = false
		}
	}()
	return job.RecomputeProgress(fullUpdate)
}

func (m *Monitor) fireJobAdded(job Job) {
	m.fire("added", job, func(l Listener) { l.JobAdded(job) })
}

func (m *Monitor) fireJobRemoved(job Job) {
	m.fire("removed", job, func(l Listener) { l.JobRemoved(job) })
}

func (m *Monitor) fireJobProgress(job Job, fullUpdate bool) {
	m.fire("progress", job, func(l Listener) { l.JobProgress(job, fullUpdate) })
}

// fire notifies a snapshot of the listeners, so listeners registered or
// removed during the fan-out only take effect for later events.
func (m *Monitor) fire(event string, job Job, notify func(Listener)) {
	for _, l := range slices.Clone(m.listeners) {
		m.notify(event, job, l, notify)
	}
}

func (m *Monitor) notify(event string, job Job, l Listener, notify func(Listener)) {
	defer func() {
		if r := recover(); r != nil {
			m.logPanic(r, event, job)
		}
	}()
	notify(l)
}

func (m *Monitor) logPanic(r any, event string, job Job) {
	buf := make([]byte, panicStackSize)
	n := runtime.Stack(buf, false)

	m.logger.Error().
		Str("event", event).
		Str("job_id", job.ID()).
		Str("panic", fmt.Sprintf("%v", r)).
		Str("stack", string(buf[:n])).
		Msg("Recovered from panic in job monitor callback")
}

func (m *Monitor) indexOf(id string) int {
	return slices.IndexFunc(m.jobs, func(j Job) bool { return j.ID() == id })
}

// publish makes the current job set visible to read accessors
func (m *Monitor) publish() {
	jobs := slices.Clone(m.jobs)
	if jobs == nil {
		jobs = []Job{}
	}
	m.snapshot.Store(&jobs)
}
