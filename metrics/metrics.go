// Package metrics provides Prometheus metrics for publication runs and the
// status server:
//   - rug_pipeline_runs_total: Counter with status label
//   - rug_pipeline_duration_seconds: Histogram of complete runs
//   - rug_source_pages_total: Counter of API pages downloaded
//   - rug_records: Gauge of published records per tier
//   - rug_format_rows_written_total: Counter with store and table labels
//   - rug_last_success_timestamp_seconds: Gauge set after each successful run
//   - http_request_*: status server request metrics
//
// All metrics are registered with the Prometheus default registry during
// package initialization.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rug_pipeline_runs_total",
			Help: "Publication runs by outcome",
		},
		[]string{"status"},
	)

	PipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rug_pipeline_duration_seconds",
			Help:    "Duration of complete publication runs",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	SourcePagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rug_source_pages_total",
			Help: "Crosswalk pages downloaded from the source API",
		},
	)

	RecordsByTier = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rug_records",
			Help: "Records in the last published crosswalk by tier",
		},
		[]string{"tier"},
	)

	FormatRowsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rug_format_rows_written_total",
			Help: "Format table rows written per store",
		},
		[]string{"store", "table"},
	)

	LastSuccess = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rug_last_success_timestamp_seconds",
			Help: "Unix time of the last successful publication run",
		},
	)

	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(PipelineRunsTotal)
	prometheus.MustRegister(PipelineDuration)
	prometheus.MustRegister(SourcePagesTotal)
	prometheus.MustRegister(RecordsByTier)
	prometheus.MustRegister(FormatRowsWritten)
	prometheus.MustRegister(LastSuccess)
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
}

// WriteTextfile dumps the default registry in the node_exporter textfile format.
// One-shot runs have no /metrics endpoint to scrape, so this is how they report.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile %s: %w", path, err)
	}
	return nil
}
