package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "facefusion_jobs_processed_total",
		Help: "Total number of jobs processed, by terminal status",
	}, []string{"status"})

	JobStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "facefusion_job_stage_duration_seconds",
		Help:    "Duration of processing pipeline stages",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
	}, []string{"stage"})

	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "facefusion_active_jobs",
		Help: "Number of jobs currently in flight",
	})

	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "facefusion_uploads_total",
		Help: "Total number of artifact uploads, by media kind and result",
	}, []string{"kind", "result"})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "facefusion_notifications_total",
		Help: "Total number of webhook notification attempts, by outcome",
	}, []string{"outcome"})
)
