package writer

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"path"
	"sort"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"trendmart/internal/blob"
	"trendmart/internal/catalog"
	"trendmart/internal/schema"
)

// partFile is the fixed object name inside a partition prefix. One batch run
// produces one file per region, and re-publishing a region replaces it in
// place, so there is never a stale sibling to clean up.
const partFile = "part-00000.parquet"

// PartialWriteError reports a publish that failed after zero or more
// partitions were already stored. The catalog entry is never updated when
// this is returned, so readers keep seeing the previous consistent dataset.
type PartialWriteError struct {
	Dataset string
	Region  string
	Err     error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("writer: partial write of dataset %q: partition region=%s: %v", e.Dataset, e.Region, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

// PartitionResult describes one published partition.
type PartitionResult struct {
	Region      string
	Key         string
	Rows        int
	Bytes       int64
	Fingerprint string
}

// Result is the outcome of a successful publish.
type Result struct {
	Partitions []PartitionResult
	Entry      catalog.Entry
}

// Writer publishes joined records as a region-partitioned Parquet dataset
// and registers the dataset's schema in the catalog.
type Writer struct {
	store   blob.Store
	cat     catalog.Store
	workers int
	now     func() time.Time
}

func New(store blob.Store, cat catalog.Store, workers int) *Writer {
	if workers < 1 {
		workers = 1
	}
	return &Writer{store: store, cat: cat, workers: workers, now: time.Now}
}

// EntryFor is the catalog entry the current record layout publishes under.
func EntryFor(dataset string) catalog.Entry {
	contract := schema.Joined()
	cols := make([]catalog.Column, 0, len(contract.Fields))
	for _, f := range contract.Fields {
		cols = append(cols, catalog.Column{
			Name:     f.Name,
			Type:     f.Type,
			Nullable: f.Nullable,
		})
	}
	return catalog.Entry{
		Dataset:       dataset,
		Columns:       cols,
		PartitionKeys: []string{"region"},
		Location:      dataset + "/",
	}
}

// PartitionKey is the object key for a region's partition file.
func PartitionKey(dataset, region string) string {
	return path.Join(dataset, "region="+region, partFile)
}

// Publish writes every region partition concurrently, then updates the
// catalog entry. The dataset lease is held for the whole publish so
// concurrent runs against the same dataset serialize instead of interleaving
// partition files. On any partition failure the catalog is left untouched
// and a *PartialWriteError is returned.
func (w *Writer) Publish(ctx context.Context, dataset string, recs []schema.JoinedRecord) (Result, error) {
	if dataset == "" {
		return Result{}, fmt.Errorf("writer: dataset name is empty")
	}

	entry := EntryFor(dataset)

	lease, err := w.cat.Acquire(ctx, dataset)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := lease.Release(context.WithoutCancel(ctx)); err != nil {
			log.Printf("writer: release lease dataset=%s: %v", dataset, err)
		}
	}()

	// The compatibility check must read the entry under the lease: an entry
	// published by another run after an unguarded read would be replaced
	// unchecked.
	prev, ok, err := w.cat.Get(ctx, dataset)
	if err != nil {
		return Result{}, fmt.Errorf("writer: catalog lookup for %q: %w", dataset, err)
	}
	if ok {
		if err := catalog.CheckCompatible(prev, entry); err != nil {
			return Result{}, fmt.Errorf("writer: dataset %q: %w", dataset, err)
		}
	}

	byRegion := groupByRegion(recs)
	regions := make([]string, 0, len(byRegion))
	for region := range byRegion {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	results := make([]PartitionResult, len(regions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.workers)
	for i, region := range regions {
		i, region := i, region
		g.Go(func() error {
			res, err := w.publishPartition(gctx, dataset, region, byRegion[region])
			if err != nil {
				return &PartialWriteError{Dataset: dataset, Region: region, Err: err}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	entry.UpdatedAt = w.now().UTC()
	if err := w.cat.Put(ctx, entry); err != nil {
		return Result{}, fmt.Errorf("writer: register dataset %q: %w", dataset, err)
	}

	total := 0
	for _, r := range results {
		total += r.Rows
	}
	log.Printf("writer: published dataset=%s partitions=%d rows=%d", dataset, len(results), total)
	return Result{Partitions: results, Entry: entry}, nil
}

func (w *Writer) publishPartition(ctx context.Context, dataset, region string, recs []schema.JoinedRecord) (PartitionResult, error) {
	data, err := EncodePartition(recs)
	if err != nil {
		return PartitionResult{}, err
	}
	key := PartitionKey(dataset, region)
	info, err := w.store.Put(ctx, key, bytes.NewReader(data))
	if err != nil {
		return PartitionResult{}, err
	}
	fp := fmt.Sprintf("%016x", xxh3.Hash(data))
	log.Printf("writer: partition dataset=%s region=%s rows=%d bytes=%d fingerprint=%s",
		dataset, region, len(recs), info.Size, fp)
	return PartitionResult{
		Region:      region,
		Key:         key,
		Rows:        len(recs),
		Bytes:       info.Size,
		Fingerprint: fp,
	}, nil
}

// groupByRegion splits records by partition key, preserving input order
// within each partition so output bytes do not depend on map iteration.
func groupByRegion(recs []schema.JoinedRecord) map[string][]schema.JoinedRecord {
	out := make(map[string][]schema.JoinedRecord)
	for _, r := range recs {
		out[r.Region] = append(out[r.Region], r)
	}
	return out
}
