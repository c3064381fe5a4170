package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Indexer metrics
var (
	IndexerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_indexer_runs_total",
			Help: "Total number of indexing runs by outcome",
		},
		[]string{"status"}, // "completed", "cancelled", "failed"
	)

	IndexerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_indexer_last_run_timestamp",
			Help: "Timestamp of the last indexing run",
		},
	)

	IndexerLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_indexer_last_run_duration_seconds",
			Help: "Duration of the last indexing run in seconds",
		},
	)

	IndexerFilesProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_indexer_files_processed_total",
			Help: "Total number of files fingerprinted by the indexer",
		},
	)

	IndexerFilesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_indexer_files_skipped_total",
			Help: "Total number of files skipped because their fingerprint was unchanged",
		},
	)

	IndexerOrphansRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_indexer_orphans_removed_total",
			Help: "Total number of database records removed for files no longer on disk",
		},
	)

	IndexerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_indexer_errors_total",
			Help: "Total number of per-file indexing errors",
		},
	)

	IndexerIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_indexer_running",
			Help: "Whether an indexing run is currently active (1 = running, 0 = idle)",
		},
	)
)

// Database metrics
var (
	DBBatchFlushes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_indexer_db_batch_flushes_total",
			Help: "Total number of asset batches committed by the writer",
		},
	)

	DBBatchFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_indexer_db_batch_flush_duration_seconds",
			Help:    "Duration of asset batch commits in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	DBQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_indexer_db_queue_depth",
			Help: "Number of assets waiting in the writer queue",
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_indexer_thumbnails_generated_total",
			Help: "Total number of thumbnails generated and stored",
		},
	)

	ThumbnailFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_indexer_thumbnail_failures_total",
			Help: "Total number of thumbnails that could not be stored",
		},
	)

	ThumbnailDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_indexer_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		},
	)

	ThumbnailGeneratorRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_indexer_thumbnail_generator_running",
			Help: "Whether a thumbnail generation run is currently active (1 = running, 0 = idle)",
		},
	)

	DecodeFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_indexer_decode_fallbacks_total",
			Help: "Total number of decode strategy failures that fell through to the next strategy",
		},
		[]string{"strategy"},
	)

	PlaceholderThumbnails = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_indexer_placeholder_thumbnails_total",
			Help: "Total number of placeholder thumbnails stored after all decode strategies failed",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_indexer_memory_usage_ratio",
			Help: "Heap usage as a ratio of the configured limit (0.0-1.0)",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_indexer_memory_paused",
			Help: "Whether thumbnail workers are paused for memory pressure (1 = paused)",
		},
	)

	MemoryPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_indexer_memory_pauses_total",
			Help: "Total number of times thumbnail workers were paused for memory pressure",
		},
	)
)

// Library metrics
var (
	LibraryAssetsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "media_indexer_library_assets",
			Help: "Number of indexed assets by type",
		},
		[]string{"type"}, // "image", "video", "icon"
	)
)

// BuildInfo carries build metadata as labels; the value is always 1.
var BuildInfo = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "media_indexer_build_info",
		Help: "Build metadata of the running binary",
	},
	[]string{"version", "commit", "go_version"},
)

// InitializeMetrics pre-populates expected label combinations so every
// metric is exported from the first Prometheus scrape.
func InitializeMetrics() {
	for _, status := range []string{"completed", "cancelled", "failed"} {
		IndexerRunsTotal.WithLabelValues(status)
	}
	for _, strategy := range []string{"vips", "imaging", "external", "embedded-preview"} {
		DecodeFallbacks.WithLabelValues(strategy)
	}
	for _, t := range []string{"image", "video", "icon"} {
		LibraryAssetsTotal.WithLabelValues(t)
	}
}
