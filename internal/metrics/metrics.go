package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	initOnce sync.Once

	// registry is private to quoll so the textfile never picks up Go
	// runtime collectors from the default registry.
	registry = prometheus.NewRegistry()
)

// Init creates and registers every metric.
// This function is safe to call multiple times (uses sync.Once)
func Init() {
	initOnce.Do(func() {
		initCleanupMetrics()
		initFilesystemMetrics()
		initOutputMetrics()

		registerCleanupMetrics()
		registerFilesystemMetrics()
		registerOutputMetrics()

		LastRunTimestamp.Set(0)
	})
}

// Registry returns the registry holding quoll's metrics.
func Registry() *prometheus.Registry {
	return registry
}

// WriteTextfile writes all metrics in the text exposition format for
// node_exporter's textfile collector. The file is replaced atomically.
func WriteTextfile(path string) error {
	Init()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
