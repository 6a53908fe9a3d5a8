// Package pipeline wires the batch run end to end: fetch raw blobs, flatten
// the reference document, clean the measurement rows, left-join on
// (category_id, region), and publish the partitioned dataset plus its catalog
// entry. The package depends only on the stage packages and the storage
// interfaces; drivers and backends are selected by configuration.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"trendmart/internal/blob"
	"trendmart/internal/catalog"
	"trendmart/internal/cleaner"
	"trendmart/internal/config"
	"trendmart/internal/join"
	"trendmart/internal/metrics"
	"trendmart/internal/parser"
	"trendmart/internal/refdata"
	"trendmart/internal/schema"
	"trendmart/internal/writer"
	"trendmart/pkg/records"
)

// Batch names the raw inputs for one region: a nested reference document and
// one or more flat measurement files, all addressed as blob keys. The
// scheduler hands batches over alongside the pipeline config.
type Batch struct {
	Region          string   `json:"region"`
	ReferenceKey    string   `json:"reference_key"`
	MeasurementKeys []string `json:"measurement_keys"`
}

// Summary is the end-of-run accounting for one pipeline invocation.
type Summary struct {
	Job      string
	Batches  int
	Duration time.Duration

	Processed   int64 // rows entering the clean stage (parsed successfully)
	ParseSkips  int64 // structurally broken rows skipped by the parser
	Coerced     int64 // cleaned rows with at least one unknown-coerced field
	Rejected    int64 // rows rejected by the cleaner
	Matched     int64 // joined rows that found a category label
	Unmatched   int64 // joined rows without a category label
	RejectCount map[string]int64

	Partitions []writer.PartitionResult
	Entry      catalog.Entry
}

// counters holds cross-goroutine statistics for a run. All fields are
// updated atomically.
type counters struct {
	processed  atomic.Int64
	parseSkips atomic.Int64
	coerced    atomic.Int64
	rejected   atomic.Int64
	matched    atomic.Int64
	unmatched  atomic.Int64
}

// rejectAgg keeps the full per-reason counts plus the first N rejected rows
// verbatim, so the summary can show examples without retaining every row.
type rejectAgg struct {
	mu      sync.Mutex
	limit   int
	first   []cleaner.RejectedRow
	byKind  map[string]int64
	regions map[string]struct{}
}

func newRejectAgg(limit int) *rejectAgg {
	return &rejectAgg{limit: limit, byKind: make(map[string]int64), regions: make(map[string]struct{})}
}

func (a *rejectAgg) add(region string, rows []cleaner.RejectedRow) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range rows {
		a.byKind[r.Reason]++
		if len(a.first) < a.limit {
			a.first = append(a.first, r)
		}
	}
	if len(rows) > 0 {
		a.regions[region] = struct{}{}
	}
}

// Function variables used to introduce test seams. In production these point
// to the real implementations; tests override them.
var (
	openBlobFn    = blob.Open
	openCatalogFn = catalog.New
	buildParserFn = parser.FromConfig
)

// runtime resolves the effective concurrency and reporting knobs.
type runtime struct {
	cleanWorkers  int
	writeWorkers  int
	rejectSamples int
}

// Config values win over env vars; env vars win over the built-in defaults.
func newRuntime(spec config.Pipeline) runtime {
	return runtime{
		cleanWorkers:  pickInt(spec.Runtime.CleanWorkers, getenvInt("TRENDMART_CLEAN_WORKERS", 4)),
		writeWorkers:  pickInt(spec.Runtime.WriteWorkers, getenvInt("TRENDMART_WRITE_WORKERS", 4)),
		rejectSamples: pickInt(spec.Runtime.RejectSamples, getenvInt("TRENDMART_REJECT_SAMPLES", 3)),
	}
}

func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("runtime: ignoring %s=%q: not a positive integer", key, v)
		return def
	}
	return n
}

// Run executes one pipeline invocation over the given batches.
//
// Batches are independent (one region each) and are processed concurrently
// up to runtime.clean_workers. Any batch-level failure — unreadable blob,
// malformed reference document, unrecognizable measurement schema, duplicate
// reference key — aborts the whole run before anything is published: raw
// inputs are immutable, so an aborted run leaves no trace. Row-level defects
// are fail-soft and only counted.
func Run(ctx context.Context, spec config.Pipeline, batches []Batch) (Summary, error) {
	start := time.Now()

	if issues := config.ValidatePipeline(spec); len(issues) > 0 {
		for _, is := range issues {
			if is.Severity == config.SeverityError {
				return Summary{}, fmt.Errorf("pipeline: config: %w", is)
			}
			log.Printf("config: %v", is)
		}
	}
	if len(batches) == 0 {
		return Summary{}, fmt.Errorf("pipeline: no batches given")
	}
	seen := make(map[string]struct{}, len(batches))
	for _, b := range batches {
		if b.Region == "" {
			return Summary{}, fmt.Errorf("pipeline: batch with empty region")
		}
		if _, dup := seen[b.Region]; dup {
			return Summary{}, fmt.Errorf("pipeline: duplicate batch for region %q", b.Region)
		}
		seen[b.Region] = struct{}{}
	}

	rt := newRuntime(spec)
	log.Printf("runtime: clean_workers=%d write_workers=%d reject_samples=%d batches=%d",
		rt.cleanWorkers, rt.writeWorkers, rt.rejectSamples, len(batches))

	store, err := openBlobFn(ctx, spec.Blob)
	if err != nil {
		return Summary{}, fmt.Errorf("pipeline: open blob store: %w", err)
	}

	cat, err := openCatalogFn(ctx, catalog.Config{Kind: spec.Catalog.Kind, DSN: spec.Catalog.DSN})
	if err != nil {
		return Summary{}, fmt.Errorf("pipeline: open catalog: %w", err)
	}
	defer cat.Close()

	parse, err := buildParserFn(spec.Parser)
	if err != nil {
		return Summary{}, fmt.Errorf("pipeline: build parser: %w", err)
	}

	var stats counters
	rejects := newRejectAgg(rt.rejectSamples)

	joinedPerBatch := make([][]schema.JoinedRecord, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rt.cleanWorkers)
	for i, b := range batches {
		i, b := i, b
		g.Go(func() error {
			joined, err := runBatch(gctx, spec.Job, store, parse, b, &stats, rejects)
			if err != nil {
				return err
			}
			joinedPerBatch[i] = joined
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	var joined []schema.JoinedRecord
	for _, part := range joinedPerBatch {
		joined = append(joined, part...)
	}

	pubStart := time.Now()
	res, err := writer.New(store, cat, rt.writeWorkers).Publish(ctx, spec.Dataset, joined)
	metrics.RecordStep(spec.Job, "publish", err, time.Since(pubStart))
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Job:         spec.Job,
		Batches:     len(batches),
		Duration:    time.Since(start),
		Processed:   stats.processed.Load(),
		ParseSkips:  stats.parseSkips.Load(),
		Coerced:     stats.coerced.Load(),
		Rejected:    stats.rejected.Load(),
		Matched:     stats.matched.Load(),
		Unmatched:   stats.unmatched.Load(),
		RejectCount: rejects.byKind,
		Partitions:  res.Partitions,
		Entry:       res.Entry,
	}

	recordRowMetrics(spec.Job, spec.Dataset, sum)
	logRejectSummary(rejects)
	logGlobalSummary(sum)

	return sum, nil
}

// runBatch processes one region: reference document → flatten, measurement
// files → parse+clean, then the left join.
func runBatch(ctx context.Context, job string, store blob.Store, parse parser.Parser, b Batch, stats *counters, rejects *rejectAgg) ([]schema.JoinedRecord, error) {
	normStart := time.Now()
	entries, err := loadReference(ctx, store, b)
	metrics.RecordStep(job, "normalize", err, time.Since(normStart))
	if err != nil {
		return nil, err
	}

	cleanStart := time.Now()
	rows, skipped, err := loadRows(ctx, store, parse, b)
	if err == nil {
		stats.processed.Add(int64(len(rows)))
		stats.parseSkips.Add(int64(skipped))
	}
	var result cleaner.Result
	if err == nil {
		result, err = cleaner.Clean(rows, schema.Trending(), b.Region)
	}
	metrics.RecordStep(job, "clean", err, time.Since(cleanStart))
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", b.Region, err)
	}
	stats.coerced.Add(int64(result.CoercedRows))
	stats.rejected.Add(int64(len(result.Rejected)))
	rejects.add(b.Region, result.Rejected)

	joinStart := time.Now()
	joined, err := join.Left(result.Measurements, entries)
	metrics.RecordStep(job, "join", err, time.Since(joinStart))
	if err != nil {
		return nil, fmt.Errorf("region %s: %w", b.Region, err)
	}
	for _, r := range joined {
		if r.CategoryLabel != nil {
			stats.matched.Add(1)
		} else {
			stats.unmatched.Add(1)
		}
	}

	log.Printf("batch region=%s rows=%d cleaned=%d rejected=%d ref_entries=%d",
		b.Region, len(rows), len(result.Measurements), len(result.Rejected), len(entries))
	return joined, nil
}

func loadReference(ctx context.Context, store blob.Store, b Batch) ([]schema.ReferenceEntry, error) {
	rc, err := store.Get(ctx, b.ReferenceKey)
	if err != nil {
		return nil, fmt.Errorf("region %s: reference %s: %w", b.Region, b.ReferenceKey, err)
	}
	defer rc.Close()
	entries, err := refdata.Normalize(rc, b.Region)
	if err != nil {
		return nil, fmt.Errorf("region %s: reference %s: %w", b.Region, b.ReferenceKey, err)
	}
	return entries, nil
}

func loadRows(ctx context.Context, store blob.Store, parse parser.Parser, b Batch) ([]records.Record, int, error) {
	var (
		rows    []records.Record
		skipped int
	)
	for _, key := range b.MeasurementKeys {
		rc, err := store.Get(ctx, key)
		if err != nil {
			return nil, 0, fmt.Errorf("region %s: measurement %s: %w", b.Region, key, err)
		}
		part, n, err := parse.Parse(rc)
		rc.Close()
		if err != nil {
			return nil, 0, fmt.Errorf("region %s: measurement %s: %w", b.Region, key, err)
		}
		rows = append(rows, part...)
		skipped += n
	}
	return rows, skipped, nil
}

func recordRowMetrics(job, dataset string, s Summary) {
	metrics.RecordRow(job, "processed", s.Processed)
	metrics.RecordRow(job, "parse_skipped", s.ParseSkips)
	metrics.RecordRow(job, "coerced", s.Coerced)
	metrics.RecordRow(job, "rejected", s.Rejected)
	metrics.RecordRow(job, "matched", s.Matched)
	metrics.RecordRow(job, "unmatched", s.Unmatched)
	for _, p := range s.Partitions {
		metrics.RecordPartition(job, dataset, p.Region, int64(p.Rows), p.Bytes)
	}
}

// logRejectSummary prints per-reason reject counts and the first N rejected
// rows verbatim.
func logRejectSummary(a *rejectAgg) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.byKind) == 0 {
		return
	}
	for reason, n := range a.byKind {
		log.Printf("rejects: reason=%s count=%d", reason, n)
	}
	for i, r := range a.first {
		log.Printf("  sample #%03d: line=%d reason=%s raw=%v", i+1, r.Line, r.Reason, r.Raw)
	}
}

// logGlobalSummary prints the final run statistics.
//
// Row accounting invariant (per run):
//
//	processed == matched + unmatched + rejected
//
// Every parsed row either joins (with or without a label) or is rejected by
// the cleaner; nothing is silently dropped.
func logGlobalSummary(s Summary) {
	log.Printf(
		"summary: job=%s batches=%d processed=%d parse_skipped=%d coerced=%d rejected=%d matched=%d unmatched=%d partitions=%d elapsed=%s",
		s.Job, s.Batches, s.Processed, s.ParseSkips, s.Coerced, s.Rejected,
		s.Matched, s.Unmatched, len(s.Partitions), s.Duration.Truncate(time.Millisecond),
	)

	accounted := s.Matched + s.Unmatched + s.Rejected
	if accounted != s.Processed {
		log.Printf("WARNING: row accounting mismatch: processed=%d accounted=%d (delta=%d)",
			s.Processed, accounted, s.Processed-accounted)
	}
}
