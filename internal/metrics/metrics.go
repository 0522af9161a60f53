package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RevisionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkpipeline_revisions_processed_total",
			Help: "Total number of revision pairs applied, by behavior tag",
		},
		[]string{"page", "behavior"},
	)

	LastProcessedRevision = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "talkpipeline_last_processed_revision",
			Help: "The last revision id successfully applied",
		},
		[]string{"page"},
	)

	BlockStoreSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "talkpipeline_block_store_size",
			Help: "Number of blocks currently held in the block store",
		},
		[]string{"page"},
	)

	BlocksMutated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkpipeline_blocks_mutated_total",
			Help: "Total block store mutations by kind (insert, rekey, remove)",
		},
		[]string{"page", "kind"},
	)

	ApplierErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkpipeline_applier_errors_total",
			Help: "Total number of revisions tagged error by the diff applier",
		},
		[]string{"page"},
	)

	RevisionProcessingTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talkpipeline_revision_processing_duration_seconds",
			Help:    "Time taken to apply a single revision pair",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"page"},
	)

	UtterancesAssembled = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "talkpipeline_utterances_assembled",
			Help: "Number of utterances produced by the most recent corpus assembly",
		},
		[]string{"page", "mode"},
	)

	MediaWikiRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkpipeline_mediawiki_retries_total",
			Help: "Total number of retried MediaWiki API calls, by operation",
		},
		[]string{"operation"},
	)

	MediaWikiRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkpipeline_mediawiki_requests_total",
			Help: "Total number of MediaWiki API requests by method",
		},
		[]string{"method"},
	)

	MediaWikiErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkpipeline_mediawiki_errors_total",
			Help: "Total number of MediaWiki API errors by method and error type",
		},
		[]string{"method", "error_type"},
	)

	MediaWikiDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "talkpipeline_mediawiki_request_duration_seconds",
			Help:    "Duration of MediaWiki API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// System metrics
	Uptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "talkpipeline_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)

	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "talkpipeline_errors_total",
			Help: "Total number of errors by component and severity",
		},
		[]string{"component", "severity"},
	)

	ComponentHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "talkpipeline_component_health",
			Help: "Component health status (1=healthy, 0=unhealthy)",
		},
		[]string{"component"},
	)

	Goroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "talkpipeline_goroutines",
			Help: "Number of active goroutines",
		},
	)

	MemoryUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "talkpipeline_memory_usage_bytes",
			Help: "Memory usage statistics",
		},
		[]string{"type"},
	)

	startTime = time.Now()
)

func RevisionsProcessedInc(page string, behavior string) {
	RevisionsProcessed.WithLabelValues(page, behavior).Inc()
}

func LastProcessedRevisionSet(page string, revisionID uint64) {
	LastProcessedRevision.WithLabelValues(page).Set(float64(revisionID))
}

func BlockStoreSizeSet(page string, size int) {
	BlockStoreSize.WithLabelValues(page).Set(float64(size))
}

func BlocksMutatedInc(page string, kind string) {
	BlocksMutated.WithLabelValues(page, kind).Inc()
}

func ApplierErrorsInc(page string) {
	ApplierErrors.WithLabelValues(page).Inc()
}

func MediaWikiRetriesInc(operation string) {
	MediaWikiRetries.WithLabelValues(operation).Inc()
}

func MediaWikiMethodInc(method string) {
	MediaWikiRequests.WithLabelValues(method).Inc()
}

func MediaWikiMethodDuration(method string, duration time.Duration) {
	MediaWikiDuration.WithLabelValues(method).Observe(duration.Seconds())
}

func MediaWikiMethodError(method, errorType string) {
	MediaWikiErrors.WithLabelValues(method, errorType).Inc()
}

func RevisionProcessingTimeLog(page string, duration time.Duration) {
	RevisionProcessingTime.WithLabelValues(page).Observe(duration.Seconds())
}

func UtterancesAssembledSet(page string, mode string, count int) {
	UtterancesAssembled.WithLabelValues(page, mode).Set(float64(count))
}

func ComponentHealthSet(component string, healthy bool) {
	boolAsFloat := float64(1)
	if !healthy {
		boolAsFloat = 0
	}

	ComponentHealth.WithLabelValues(component).Set(boolAsFloat)
}

// UpdateSystemMetrics updates runtime system metrics.
// This should be called periodically (e.g., every 15 seconds).
func UpdateSystemMetrics() {
	Uptime.Set(time.Since(startTime).Seconds())
	Goroutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	MemoryUsage.WithLabelValues("alloc").Set(float64(m.Alloc))
	MemoryUsage.WithLabelValues("total_alloc").Set(float64(m.TotalAlloc))
	MemoryUsage.WithLabelValues("sys").Set(float64(m.Sys))
	MemoryUsage.WithLabelValues("heap_inuse").Set(float64(m.HeapInuse))
}
