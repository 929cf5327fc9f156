package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"quoll/internal/disk"
)

// Filesystem metrics for the scanned root
var (
	FreeBytes   *prometheus.GaugeVec
	TotalBytes  *prometheus.GaugeVec
	FreePercent *prometheus.GaugeVec
)

func initFilesystemMetrics() {
	FreeBytes = NewGaugeVec(
		"quoll_filesystem_free_bytes",
		"Free space available on the filesystem holding the root.",
		[]string{"path"},
	)
	TotalBytes = NewGaugeVec(
		"quoll_filesystem_total_bytes",
		"Total capacity of the filesystem holding the root.",
		[]string{"path"},
	)
	FreePercent = NewGaugeVec(
		"quoll_filesystem_free_percent",
		"Free space percentage of the filesystem holding the root.",
		[]string{"path"},
	)
}

func registerFilesystemMetrics() {
	registry.MustRegister(FreeBytes, TotalBytes, FreePercent)
}

// UpdateFilesystem records usage for path.
func UpdateFilesystem(path string, u disk.Usage) {
	FreeBytes.WithLabelValues(path).Set(float64(u.FreeBytes))
	TotalBytes.WithLabelValues(path).Set(float64(u.TotalBytes))
	FreePercent.WithLabelValues(path).Set(u.FreePercent())
}
