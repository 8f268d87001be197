package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ytget/jobmon/internal/config"
	"github.com/ytget/jobmon/internal/filejob"
	"github.com/ytget/jobmon/internal/logging"
	"github.com/ytget/jobmon/internal/metrics"
	"github.com/ytget/jobmon/internal/model"
	"github.com/ytget/jobmon/internal/monitor"
)

// Session timing
const (
	drainPollInterval = 50 * time.Millisecond
	shutdownTimeout   = 5 * time.Second
)

// session wires a monitor, a job service and the listeners of one CLI run
type session struct {
	monitor   *monitor.Monitor
	service   *filejob.Service
	collector *metrics.Collector
	server    *http.Server
	logger    zerolog.Logger

	// jobs outlive their service entries, which are dropped on removal
	jobs []*filejob.Job
}

// startSession builds the monitor from the config file and attaches the
// logging listener. A non empty metricsAddr overrides the configured address.
func startSession(file *config.File, logger zerolog.Logger, maxParallel int, metricsAddr string) (*session, error) {
	monCfg, err := file.MonitorConfig()
	if err != nil {
		return nil, err
	}
	logInterval, err := file.ProgressLogInterval()
	if err != nil {
		return nil, err
	}

	mon, err := monitor.New(monCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create monitor: %w", err)
	}

	if maxParallel <= 0 {
		maxParallel = file.Jobs.MaxParallel
	}

	s := &session{
		monitor:   mon,
		service:   filejob.NewService(mon, maxParallel, logger),
		collector: metrics.NewCollector(),
		logger:    logger,
	}
	mon.AddListener(logging.NewListener(logger, logInterval))
	mon.AddListener(s.collector)
	mon.AddListener(s.service.ForgetRemoved())

	if metricsAddr == "" {
		metricsAddr = file.Metrics.Address
	}
	if metricsAddr != "" {
		if err := s.serveMetrics(metricsAddr); err != nil {
			_ = mon.Close()
			return nil, err
		}
	}
	return s, nil
}

// serveMetrics exposes the collector on addr under /metrics
func (s *session) serveMetrics(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.collector.Handler())
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Metrics server stopped")
		}
	}()

	s.logger.Info().Str("address", listener.Addr().String()).Msg("Serving metrics")
	return nil
}

// submit hands plan to the service and keeps the job for the summary
func (s *session) submit(plan filejob.Plan, work filejob.WorkFunc) error {
	job, err := s.service.Submit(plan, work)
	if err != nil {
		return err
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// wait blocks until every job ended and the monitor dropped them. When ctx is
// cancelled the remaining jobs are stopped first.
func (s *session) wait(ctx context.Context) error {
	if err := s.service.Wait(ctx); err != nil {
		s.logger.Warn().Msg("Interrupted, stopping jobs")
		s.service.StopAll()

		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.service.Wait(stopCtx); err != nil {
			return fmt.Errorf("jobs did not stop: %w", err)
		}
		return ctx.Err()
	}

	// Let listeners see the final progress and the removals
	drainCtx, cancel := context.WithTimeout(ctx, s.monitor.Config().RemoveDelay+shutdownTimeout)
	defer cancel()

	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()
	for s.monitor.JobCount() > 0 {
		select {
		case <-drainCtx.Done():
			return nil
		case <-ticker.C:
		}
	}
	// The last removal event may still be fanning out
	s.monitor.Flush()
	return nil
}

// summary counts finished and interrupted jobs and logs each failure
func (s *session) summary() error {
	var finished, interrupted int
	for _, job := range s.jobs {
		switch job.State() {
		case model.JobStateFinished:
			finished++
		case model.JobStateInterrupted:
			interrupted++
			s.logger.Error().Str("job_id", job.ID()).Str("name", job.Name()).Str("error", job.LastError()).Msg("Job interrupted")
		}
	}

	s.logger.Info().Int("finished", finished).Int("interrupted", interrupted).Msg("All jobs ended")
	if interrupted > 0 {
		return fmt.Errorf("%d of %d jobs interrupted", interrupted, finished+interrupted)
	}
	return nil
}

// close stops the metrics server and the monitor
func (s *session) close() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Metrics server shutdown failed")
		}
	}
	_ = s.monitor.Close()
}
