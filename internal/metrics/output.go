package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Output pipeline metrics
var (
	OutputItemsTotal      prometheus.Counter
	OutputSinkErrorsTotal prometheus.Counter
)

func initOutputMetrics() {
	OutputItemsTotal = NewCounter(
		"quoll_output_items_total",
		"Progress items delivered to the console and log file.",
	)
	OutputSinkErrorsTotal = NewCounter(
		"quoll_output_sink_errors_total",
		"Failed or panicking sink writes.",
	)
}

func registerOutputMetrics() {
	registry.MustRegister(OutputItemsTotal, OutputSinkErrorsTotal)
}

// RecordOutput counts one delivered item. It matches the pipeline's
// OnWrite hook.
func RecordOutput(sinkErrors int) {
	OutputItemsTotal.Inc()
	if sinkErrors > 0 {
		OutputSinkErrorsTotal.Add(float64(sinkErrors))
	}
}
