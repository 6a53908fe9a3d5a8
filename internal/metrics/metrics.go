// Package metrics is a small backend-agnostic layer for recording pipeline
// counters and timings. The global backend defaults to a no-op, so every
// call site is safe whether or not a real system (Prometheus, Datadog) is
// configured; concrete backends live in subpackages and are installed once
// at startup with SetBackend. The pluggable-backend shape mirrors the
// catalog's registry so the rest of the code depends only on this package.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface a metrics system has to satisfy.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a duration-style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes buffered metrics if the backend needs it (Pushgateway).
	Flush() error
}

// nopBackend keeps metrics optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep measures one pipeline stage: latency plus a success/failure
// counter, labeled by job and stage name.
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter("pipeline_step_total", 1, lbls)
	backend.ObserveHistogram("pipeline_step_duration_seconds", d.Seconds(), lbls)
}

// RecordRow increments a row-level counter for the given job and kind.
//
// Kinds mirror the run summary fields:
//   - "processed"
//   - "parse_skipped"
//   - "coerced"
//   - "rejected"
//   - "matched"
//   - "unmatched"
func RecordRow(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("pipeline_rows_total", float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordPartition records one published partition's row count and size.
func RecordPartition(job, dataset, region string, rows int64, bytes int64) {
	lbls := Labels{
		"job":     job,
		"dataset": dataset,
		"region":  region,
	}
	backend.IncCounter("pipeline_partitions_total", 1, lbls)
	backend.IncCounter("pipeline_partition_rows_total", float64(rows), lbls)
	backend.IncCounter("pipeline_partition_bytes_total", float64(bytes), lbls)
}
