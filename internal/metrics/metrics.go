// Package metrics exposes Prometheus instrumentation for the
// preprocessing run.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "abalone_preprocess_build_info",
		Help: "Build information of the preprocessing CLI",
	}, []string{"version", "commit", "date"})

	DownloadBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "abalone_preprocess_download_bytes",
		Help: "Size in bytes of the downloaded dataset object",
	})

	RowsLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "abalone_preprocess_rows_loaded",
		Help: "Number of rows parsed from the raw dataset",
	})

	PartitionRows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "abalone_preprocess_partition_rows",
		Help: "Rows written per output partition",
	}, []string{"partition"})

	StepFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "abalone_preprocess_step_failures_total",
		Help: "Total step failures by pipeline error type",
	}, []string{"error_type"})

	StepDurationSeconds = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "abalone_preprocess_step_duration_seconds",
		Help: "Wall-clock duration of each pipeline step",
	}, []string{"step"})
)
