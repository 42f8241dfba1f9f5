package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freecipies_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freecipies_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "freecipies_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	HTTPRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "freecipies_http_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freecipies_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freecipies_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "freecipies_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Object storage metrics
var (
	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freecipies_storage_operations_total",
			Help: "Total number of object-store operations",
		},
		[]string{"operation", "status"},
	)

	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freecipies_storage_operation_duration_seconds",
			Help:    "Object-store operation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)

	StorageBytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "freecipies_storage_bytes_uploaded_total",
			Help: "Total bytes uploaded to the object store",
		},
	)

	PresignedURLsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "freecipies_storage_presigned_urls_issued_total",
			Help: "Total number of presigned upload URLs issued",
		},
	)
)

// Encode pipeline metrics
var (
	EncodeJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freecipies_encode_jobs_total",
			Help: "Total number of encode pipeline jobs",
		},
		[]string{"format", "status"},
	)

	EncodeJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freecipies_encode_job_duration_seconds",
			Help:    "Encode pipeline job duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"format"},
	)

	EncodeFallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "freecipies_encode_avif_fallbacks_total",
			Help: "Total number of AVIF encodes that fell back to WebP",
		},
	)

	EncodeQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "freecipies_encode_queue_depth",
			Help: "Number of encode jobs waiting in the pipeline queue",
		},
	)
)

// Bulk delete metrics
var (
	MediaDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "freecipies_media_deleted_total",
			Help: "Total number of media records deleted",
		},
	)

	MediaDeleteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "freecipies_media_delete_failures_total",
			Help: "Total number of media deletions that failed",
		},
	)
)
