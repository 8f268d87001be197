package logging

import (
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ytget/jobmon/internal/monitor"
)

// named is implemented by jobs that carry a display name
type named interface {
	Name() string
}

// Listener logs monitor events. Added and removed jobs are logged at info,
// full progress updates at debug and partial updates at trace. Partial
// updates are throttled per job to one line per interval.
//
// Like every monitor listener it is called from the monitor goroutine only.
type Listener struct {
	logger    zerolog.Logger
	interval  time.Duration
	throttles map[string]*rate.Limiter
}

// NewListener creates a logging listener. A zero interval logs every partial update.
func NewListener(logger zerolog.Logger, interval time.Duration) *Listener {
	return &Listener{
		logger:    logger.With().Str("component", "jobs").Logger(),
		interval:  interval,
		throttles: make(map[string]*rate.Limiter),
	}
}

// JobAdded implements monitor.Listener
func (l *Listener) JobAdded(job monitor.Job) {
	event := l.logger.Info().Str("job_id", job.ID())
	if n, ok := job.(named); ok {
		event = event.Str("name", n.Name())
	}
	event.Str("state", job.State().String()).Msg("Job added")
}

// JobRemoved implements monitor.Listener
func (l *Listener) JobRemoved(job monitor.Job) {
	delete(l.throttles, job.ID())

	p := job.Progress()
	l.logger.Info().
		Str("job_id", job.ID()).
		Str("state", job.State().String()).
		Int("percent", p.Percent).
		Str("size", p.GetSizeString()).
		Str("elapsed", durationField(p.Elapsed)).
		Msg("Job removed")
}

// JobProgress implements monitor.Listener
func (l *Listener) JobProgress(job monitor.Job, fullUpdate bool) {
	p := job.Progress()

	if fullUpdate {
		l.logger.Debug().
			Str("job_id", job.ID()).
			Int("percent", p.Percent).
			Str("file", p.GetCurrentFileName()).
			Str("speed", p.GetSpeedString()).
			Str("eta", p.GetETAString()).
			Msg("Job progress")
		return
	}

	if l.logger.GetLevel() > zerolog.TraceLevel || !l.allow(job.ID()) {
		return
	}
	l.logger.Trace().
		Str("job_id", job.ID()).
		Int("percent", p.Percent).
		Str("file", p.GetCurrentFileName()).
		Msg("Job progress")
}

// allow reports whether a partial update of the job may be logged now
func (l *Listener) allow(id string) bool {
	if l.interval <= 0 {
		return true
	}
	limiter, ok := l.throttles[id]
	if !ok {
		// 1 line per interval, burst 1
		limiter = rate.NewLimiter(rate.Every(l.interval), 1)
		l.throttles[id] = limiter
	}
	return limiter.Allow()
}

var _ monitor.Listener = (*Listener)(nil)
