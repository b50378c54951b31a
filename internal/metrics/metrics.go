package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "media_downloader_tasks_submitted_total",
		Help: "Total number of tasks submitted",
	})

	TasksFinished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "media_downloader_tasks_finished_total",
		Help: "Total number of tasks that produced an artifact",
	})

	TasksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "media_downloader_tasks_failed_total",
		Help: "Total number of tasks that ended in error",
	})

	TasksRetried = promauto.NewCounter(prometheus.CounterOpts{
		Name: "media_downloader_tasks_retried_total",
		Help: "Total number of tasks that fell back to the degraded configuration",
	})

	TaskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "media_downloader_task_duration_seconds",
		Help:    "Time from submission to terminal state in seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})

	QueuedJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "media_downloader_queued_jobs",
		Help: "Number of jobs waiting for a worker",
	})

	ExtractionAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "media_downloader_extraction_attempts_total",
		Help: "Metadata extraction attempts by profile and outcome",
	}, []string{"profile", "outcome"})

	ArtifactsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "media_downloader_artifacts_delivered_total",
		Help: "Total number of artifact fetches served",
	})

	FilesCollected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "media_downloader_files_collected_total",
		Help: "Total number of file records removed by garbage collection",
	})
)
