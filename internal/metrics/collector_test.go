package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/jobmon/internal/filejob"
	"github.com/ytget/jobmon/internal/model"
)

func newJob(id string, done int64) *filejob.Job {
	job := filejob.NewJob(id, filejob.Plan{
		Name:       id,
		Kind:       model.JobKindMove,
		Files:      []string{"/src/a.bin"},
		TotalBytes: 1000,
	})
	job.Start()
	job.AddBytes(done)
	job.RecomputeProgress(false)
	return job
}

func TestCollectorTracksJobs(t *testing.T) {
	c := NewCollector()
	first := newJob("job-1", 250)
	second := newJob("job-2", 0)

	c.JobAdded(first)
	c.JobAdded(second)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.jobsRegistered))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.events.WithLabelValues(EventAdded)))
	assert.Equal(t, 25.0, testutil.ToFloat64(c.percent.WithLabelValues("job-1")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.percent))

	first.Finish()
	c.JobRemoved(first)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.jobsRegistered))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.removed.WithLabelValues("Finished")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.percent), "removed job series must be dropped")
}

func TestCollectorProgress(t *testing.T) {
	c := NewCollector()
	job := newJob("job-1", 100)
	c.JobAdded(job)

	job.AddBytes(400)
	job.RecomputeProgress(true)
	c.JobProgress(job, true)
	c.JobProgress(job, false)
	c.JobProgress(job, false)

	assert.Equal(t, 50.0, testutil.ToFloat64(c.percent.WithLabelValues("job-1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.events.WithLabelValues(EventProgressFull)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.events.WithLabelValues(EventProgressPartial)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.throughput))

	c.JobRemoved(job)
	assert.Equal(t, 0, testutil.CollectAndCount(c.throughput))
}

func TestCollectorRegisteredGaugeExposition(t *testing.T) {
	c := NewCollector()
	c.JobAdded(newJob("job-1", 0))

	expected := `
# HELP jobmon_jobs_registered Number of jobs currently registered with the monitor.
# TYPE jobmon_jobs_registered gauge
jobmon_jobs_registered 1
`
	err := testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected), "jobmon_jobs_registered")
	assert.NoError(t, err)
}

func TestCollectorHandler(t *testing.T) {
	c := NewCollector()
	c.JobAdded(newJob("job-1", 500))

	server := httptest.NewServer(c.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `jobmon_job_percent{job="job-1"} 50`)
	assert.Contains(t, string(body), `jobmon_job_events_total{event="added"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
