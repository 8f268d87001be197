// Package metrics exports job monitor activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ytget/jobmon/internal/monitor"
)

const namespace = "jobmon"

// Event label values of jobmon_job_events_total
const (
	EventAdded           = "added"
	EventRemoved         = "removed"
	EventProgressFull    = "progress_full"
	EventProgressPartial = "progress_partial"
)

// Collector is a monitor.Listener that keeps Prometheus metrics in sync with
// the monitored jobs.
type Collector struct {
	registry *prometheus.Registry

	jobsRegistered prometheus.Gauge
	events         *prometheus.CounterVec
	removed        *prometheus.CounterVec
	percent        *prometheus.GaugeVec
	throughput     *prometheus.GaugeVec
}

// NewCollector creates a collector with its own registry. The registry also
// carries the Go runtime and process collectors.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_registered",
			Help:      "Number of jobs currently registered with the monitor.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_events_total",
			Help:      "Monitor events delivered to listeners, by event type.",
		}, []string{"event"}),
		removed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_removed_total",
			Help:      "Jobs removed from the monitor, by state at removal.",
		}, []string{"state"}),
		percent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_percent",
			Help:      "Completion percentage of each registered job.",
		}, []string{"job"}),
		throughput: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "job_throughput_bytes_per_second",
			Help:      "Throughput of each registered job measured at its last full update.",
		}, []string{"job"}),
	}

	c.registry.MustRegister(
		c.jobsRegistered,
		c.events,
		c.removed,
		c.percent,
		c.throughput,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry holding the collector's metrics
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// JobAdded implements monitor.Listener
func (c *Collector) JobAdded(job monitor.Job) {
	c.jobsRegistered.Inc()
	c.events.WithLabelValues(EventAdded).Inc()
	c.percent.WithLabelValues(job.ID()).Set(float64(job.Progress().Percent))
}

// JobRemoved implements monitor.Listener
func (c *Collector) JobRemoved(job monitor.Job) {
	c.jobsRegistered.Dec()
	c.events.WithLabelValues(EventRemoved).Inc()
	c.removed.WithLabelValues(job.State().String()).Inc()

	// Per job series go away with the job
	c.percent.DeleteLabelValues(job.ID())
	c.throughput.DeleteLabelValues(job.ID())
}

// JobProgress implements monitor.Listener
func (c *Collector) JobProgress(job monitor.Job, fullUpdate bool) {
	p := job.Progress()
	c.percent.WithLabelValues(job.ID()).Set(float64(p.Percent))

	if !fullUpdate {
		c.events.WithLabelValues(EventProgressPartial).Inc()
		return
	}
	c.events.WithLabelValues(EventProgressFull).Inc()
	c.throughput.WithLabelValues(job.ID()).Set(p.BytesPerSecond)
}

var _ monitor.Listener = (*Collector)(nil)
