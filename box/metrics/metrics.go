// Package metrics holds the prometheus collectors for the transaction
// and log subsystems.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	TxnCommits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tinybox",
			Subsystem: "txn",
			Name:      "commits_total",
			Help:      "Total number of committed transactions.",
		})

	TxnRollbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tinybox",
			Subsystem: "txn",
			Name:      "rollbacks_total",
			Help:      "Total number of rolled back transactions.",
		})

	WalWriteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tinybox",
			Subsystem: "wal",
			Name:      "write_duration_seconds",
			Help:      "Bucketed histogram of log append latency.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 20),
		})

	WalBytesWritten = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tinybox",
			Subsystem: "wal",
			Name:      "bytes_written_total",
			Help:      "Total bytes appended to the write ahead log.",
		})

	WalRotations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tinybox",
			Subsystem: "wal",
			Name:      "rotations_total",
			Help:      "Total number of log file rotations.",
		})

	CursorSkippedBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "tinybox",
			Subsystem: "xlog",
			Name:      "cursor_skipped_bytes_total",
			Help:      "Total bytes skipped by cursors while resyncing.",
		})
)

func init() {
	prometheus.MustRegister(TxnCommits)
	prometheus.MustRegister(TxnRollbacks)
	prometheus.MustRegister(WalWriteDuration)
	prometheus.MustRegister(WalBytesWritten)
	prometheus.MustRegister(WalRotations)
	prometheus.MustRegister(CursorSkippedBytes)
}
