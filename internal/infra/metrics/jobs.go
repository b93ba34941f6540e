package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(jobsProcessedTotal, jobDurationSeconds) }

var (
	jobsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobs_processed_total",
			Help: "Background and batch jobs by pool and outcome.",
		},
		[]string{"job", "status"}, // ok|error|panic|dropped
	)

	jobDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "job_duration_seconds",
			Help:    "Wall time of one job run.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job"},
	)
)

func IncJob(job, status string) {
	jobsProcessedTotal.WithLabelValues(norm(job), norm(status)).Inc()
}

func ObserveJob(job string, d time.Duration) {
	jobDurationSeconds.WithLabelValues(norm(job)).Observe(d.Seconds())
}
