// Package prompush adapts metrics.Backend to a Prometheus Pushgateway.
// Batch runs are too short-lived to scrape, so the collected registry is
// pushed once at the end of a run. All Prometheus-specific code stays here
// so the pipeline core never imports client_golang.
package prompush

import (
	"fmt"

	"trendmart/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // pipeline_step_total
	stepDuration *prometheus.SummaryVec // pipeline_step_duration_seconds

	rowCounter       *prometheus.CounterVec // pipeline_rows_total
	partitionCounter *prometheus.CounterVec // pipeline_partitions_total
	partitionRows    *prometheus.CounterVec // pipeline_partition_rows_total
	partitionBytes   *prometheus.CounterVec // pipeline_partition_bytes_total
}

// NewBackend constructs a Pushgateway backend. jobName becomes the
// Pushgateway "job" grouping key, so the job label is not repeated on the
// individual collectors.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "trendmart"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_step_total",
			Help: "Pipeline stage executions, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "pipeline_step_duration_seconds",
			Help:       "Pipeline stage duration in seconds, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_rows_total",
			Help: "Row-level counts per kind (processed, coerced, rejected, etc.).",
		},
		[]string{"kind"},
	)
	partitionCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_partitions_total",
			Help: "Partitions published, partitioned by dataset and region.",
		},
		[]string{"dataset", "region"},
	)
	partitionRows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_partition_rows_total",
			Help: "Rows written to published partitions.",
		},
		[]string{"dataset", "region"},
	)
	partitionBytes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_partition_bytes_total",
			Help: "Bytes written to published partitions.",
		},
		[]string{"dataset", "region"},
	)

	for _, c := range []prometheus.Collector{
		stepCounter, stepDuration, rowCounter,
		partitionCounter, partitionRows, partitionBytes,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:       gatewayURL,
		jobName:          jobName,
		reg:              reg,
		stepCounter:      stepCounter,
		stepDuration:     stepDuration,
		rowCounter:       rowCounter,
		partitionCounter: partitionCounter,
		partitionRows:    partitionRows,
		partitionBytes:   partitionBytes,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "pipeline_step_total":
		b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
	case "pipeline_rows_total":
		b.rowCounter.WithLabelValues(labels["kind"]).Add(delta)
	case "pipeline_partitions_total":
		b.partitionCounter.WithLabelValues(labels["dataset"], labels["region"]).Add(delta)
	case "pipeline_partition_rows_total":
		b.partitionRows.WithLabelValues(labels["dataset"], labels["region"]).Add(delta)
	case "pipeline_partition_bytes_total":
		b.partitionBytes.WithLabelValues(labels["dataset"], labels["region"]).Add(delta)
	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "pipeline_step_duration_seconds" {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
