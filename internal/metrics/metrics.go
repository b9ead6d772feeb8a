// Package metrics exposes Prometheus collectors for the log engine.
//
// Collectors are registered on the default registry at package init through
// promauto, and served by the admin API at /metrics:
//
//   - linelog_records_written_total{level}: records appended to the active file
//   - linelog_bytes_written_total: encoded bytes appended
//   - linelog_rotations_total{trigger}: rotations by trigger (size, day, startup)
//   - linelog_io_failures_total{op}: swallowed file system failures by operation
//   - linelog_frames_skipped_total{reason}: frames dropped while reading (malformed, truncated)
//   - linelog_records_dropped_total{reason}: records never handed to the store (below_min, user_facing)
//   - linelog_archive_exports_total{status}: archive exports by outcome
//   - linelog_archive_bytes: size of the last exported archive before compression
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Iron-Ham/linelog/internal/record"
)

var (
	// Store Metrics
	RecordsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linelog_records_written_total",
			Help: "Total number of records appended to the active log file",
		},
		[]string{"level"},
	)

	BytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linelog_bytes_written_total",
			Help: "Total number of encoded bytes appended to log files",
		},
	)

	Rotations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linelog_rotations_total",
			Help: "Total number of log file rotations",
		},
		[]string{"trigger"}, // "size", "day", "startup"
	)

	IOFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linelog_io_failures_total",
			Help: "Total number of file system failures swallowed by the store",
		},
		[]string{"op"},
	)

	AppendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "linelog_append_duration_seconds",
			Help:    "Time spent holding the folder lock for one append",
			Buckets: []float64{.00005, .0001, .0005, .001, .005, .01, .05, .1},
		},
	)

	// Reader Metrics
	FramesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linelog_frames_skipped_total",
			Help: "Total number of frames dropped while reading log files",
		},
		[]string{"reason"}, // "malformed", "truncated"
	)

	ArchiveExports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linelog_archive_exports_total",
			Help: "Total number of log archive exports",
		},
		[]string{"status"}, // "ok", "error"
	)

	ArchiveBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "linelog_archive_bytes",
			Help: "Uncompressed size of the last exported archive",
		},
	)

	// Logger Metrics
	RecordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linelog_records_dropped_total",
			Help: "Total number of log calls that never reached the store",
		},
		[]string{"reason"}, // "below_min", "user_facing"
	)
)

// Rotation triggers.
const (
	TriggerSize    = "size"
	TriggerDay     = "day"
	TriggerStartup = "startup"
)

// Frame skip reasons.
const (
	SkipMalformed = "malformed"
	SkipTruncated = "truncated"
)

// Drop reasons.
const (
	DropBelowMin   = "below_min"
	DropUserFacing = "user_facing"
)

// RecordAppend records one successful append.
func RecordAppend(level record.Level, bytes int, duration time.Duration) {
	RecordsWritten.WithLabelValues(level.String()).Inc()
	BytesWritten.Add(float64(bytes))
	AppendDuration.Observe(duration.Seconds())
}

// RecordRotation records a rotation for the given trigger.
func RecordRotation(trigger string) {
	Rotations.WithLabelValues(trigger).Inc()
}

// RecordIOFailure records a swallowed file system failure.
func RecordIOFailure(op string) {
	IOFailures.WithLabelValues(op).Inc()
}

// RecordSkippedFrames records frames dropped by a reader.
func RecordSkippedFrames(reason string, n int) {
	if n <= 0 {
		return
	}
	FramesSkipped.WithLabelValues(reason).Add(float64(n))
}

// RecordExport records the outcome of an archive export.
func RecordExport(rawBytes int64, err error) {
	if err != nil {
		ArchiveExports.WithLabelValues("error").Inc()
		return
	}
	ArchiveExports.WithLabelValues("ok").Inc()
	ArchiveBytes.Set(float64(rawBytes))
}

// RecordDrop records a log call discarded before reaching the store.
func RecordDrop(reason string) {
	RecordsDropped.WithLabelValues(reason).Inc()
}
