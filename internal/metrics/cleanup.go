package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Cleanup run metrics
var (
	// ItemsSelected counts entries chosen by the scan, by kind (file, folder, empty_folder)
	ItemsSelected *prometheus.CounterVec

	FilesDeletedTotal   prometheus.Counter
	FoldersDeletedTotal prometheus.Counter

	// BytesFreedTotal tracks bytes removed, measured before deletion
	BytesFreedTotal prometheus.Counter

	BackupsTotal     prometheus.Counter
	BackupBytesTotal prometheus.Counter

	// ItemErrorsTotal counts per-item failures by phase and stage (backup, delete)
	ItemErrorsTotal *prometheus.CounterVec

	SafetyBlocksTotal prometheus.Counter

	ItemDuration prometheus.Histogram
	RunDuration  prometheus.Histogram

	// LastRunTimestamp records Unix time of the last finished run
	LastRunTimestamp prometheus.Gauge

	// LastRunInterrupted is 1 when the last run was cancelled
	LastRunInterrupted prometheus.Gauge
)

func initCleanupMetrics() {
	ItemsSelected = NewCounterVec(
		"quoll_items_selected_total",
		"Entries selected for deletion, by kind.",
		[]string{"kind"},
	)
	FilesDeletedTotal = NewCounter(
		"quoll_files_deleted_total",
		"Total number of files deleted.",
	)
	FoldersDeletedTotal = NewCounter(
		"quoll_folders_deleted_total",
		"Total number of folders deleted, including pruned empty folders.",
	)
	BytesFreedTotal = NewCounter(
		"quoll_bytes_freed_total",
		"Total bytes freed by deletions.",
	)
	BackupsTotal = NewCounter(
		"quoll_backups_total",
		"Total number of items copied to the backup root.",
	)
	BackupBytesTotal = NewCounter(
		"quoll_backup_bytes_total",
		"Total bytes copied to the backup root.",
	)
	ItemErrorsTotal = NewCounterVec(
		"quoll_item_errors_total",
		"Per-item failures by phase and stage.",
		[]string{"phase", "stage"},
	)
	SafetyBlocksTotal = NewCounter(
		"quoll_safety_blocks_total",
		"Items refused by the safety validator.",
	)
	ItemDuration = NewHistogram(
		"quoll_item_duration_seconds",
		"Time to back up and delete one item.",
		ItemBuckets,
	)
	RunDuration = NewHistogram(
		"quoll_run_duration_seconds",
		"Wall-clock duration of a cleanup run.",
		RunBuckets,
	)
	LastRunTimestamp = NewGauge(
		"quoll_last_run_timestamp",
		"Timestamp of the last cleanup run (Unix epoch seconds).",
	)
	LastRunInterrupted = NewGauge(
		"quoll_last_run_interrupted",
		"1 if the last cleanup run was interrupted.",
	)
}

func registerCleanupMetrics() {
	registry.MustRegister(
		ItemsSelected,
		FilesDeletedTotal,
		FoldersDeletedTotal,
		BytesFreedTotal,
		BackupsTotal,
		BackupBytesTotal,
		ItemErrorsTotal,
		SafetyBlocksTotal,
		ItemDuration,
		RunDuration,
		LastRunTimestamp,
		LastRunInterrupted,
	)
}

// RecordSelection adds the scan result sizes.
func RecordSelection(kind string, n int) {
	ItemsSelected.WithLabelValues(kind).Add(float64(n))
}

// RecordDeletion counts one removed item and its size.
func RecordDeletion(isDir bool, bytes int64, elapsed time.Duration) {
	if isDir {
		FoldersDeletedTotal.Inc()
	} else {
		FilesDeletedTotal.Inc()
	}
	if bytes > 0 {
		BytesFreedTotal.Add(float64(bytes))
	}
	ItemDuration.Observe(elapsed.Seconds())
}

// RecordBackup counts one copied item.
func RecordBackup(bytes int64) {
	BackupsTotal.Inc()
	if bytes > 0 {
		BackupBytesTotal.Add(float64(bytes))
	}
}

// RecordItemError counts a failed item.
func RecordItemError(phase, stage string) {
	ItemErrorsTotal.WithLabelValues(phase, stage).Inc()
}

// RecordRun stamps the end of a run.
func RecordRun(elapsed time.Duration, interrupted bool) {
	RunDuration.Observe(elapsed.Seconds())
	LastRunTimestamp.Set(float64(time.Now().Unix()))
	if interrupted {
		LastRunInterrupted.Set(1)
	} else {
		LastRunInterrupted.Set(0)
	}
}
