package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"trendmart/internal/blob"
	"trendmart/internal/catalog"
	catmem "trendmart/internal/catalog/memory"
	"trendmart/internal/cleaner"
	"trendmart/internal/config"
	"trendmart/internal/refdata"
	"trendmart/internal/writer"
)

const usReference = `{
  "items": [
    {"id": "1",  "snippet": {"title": "Film & Animation", "assignable": true}},
    {"id": "10", "snippet": {"title": "Music", "assignable": true}}
  ]
}`

const gbReference = `{
  "items": [
    {"id": "10", "snippet": {"title": "Music", "assignable": true}}
  ]
}`

// One well-labeled row, one row with a coercible likes value, one row whose
// category has no reference entry, and one row with no identifier.
const usMeasurements = `video_id,categoryId,likes,publish_time,title
v1,1,10,2026-01-15T10:30:00Z,First
v2,10,n/a,2026-01-15T11:00:00Z,Second
v3,42,5,2026-01-15T12:00:00Z,Third
,1,2,2026-01-15T13:00:00Z,NoID
`

const gbMeasurements = `video_id,categoryId,likes,publish_time,title
g1,10,7,2026-01-16T09:00:00Z,Morning
`

func testSpec() config.Pipeline {
	return config.Pipeline{
		Job:     "trending_test",
		Dataset: "trending_joined",
		Parser:  config.Parser{Kind: "csv", Options: config.Options{"has_header": true}},
		Catalog: config.Catalog{Kind: "memory"},
		Blob:    config.Blob{Driver: "memory"},
	}
}

// seedStore overrides the blob seam with a pre-loaded store and returns it.
func seedStore(t *testing.T, objects map[string]string) *blob.Memory {
	t.Helper()
	store := blob.NewMemory()
	ctx := context.Background()
	for key, body := range objects {
		if _, err := store.Put(ctx, key, strings.NewReader(body)); err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
	}

	orig := openBlobFn
	openBlobFn = func(ctx context.Context, cfg config.Blob) (blob.Store, error) {
		return store, nil
	}
	t.Cleanup(func() { openBlobFn = orig })
	return store
}

// pinCatalog overrides the catalog seam so assertions can see the same
// instance the run used.
func pinCatalog(t *testing.T) *catmem.Store {
	t.Helper()
	cat := catmem.New()
	orig := openCatalogFn
	openCatalogFn = func(ctx context.Context, cfg catalog.Config) (catalog.Store, error) {
		return cat, nil
	}
	t.Cleanup(func() { openCatalogFn = orig })
	return cat
}

func TestRunEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := seedStore(t, map[string]string{
		"raw/US/categories.json": usReference,
		"raw/US/trending.csv":    usMeasurements,
		"raw/GB/categories.json": gbReference,
		"raw/GB/trending.csv":    gbMeasurements,
	})
	cat := pinCatalog(t)

	batches := []Batch{
		{Region: "US", ReferenceKey: "raw/US/categories.json", MeasurementKeys: []string{"raw/US/trending.csv"}},
		{Region: "GB", ReferenceKey: "raw/GB/categories.json", MeasurementKeys: []string{"raw/GB/trending.csv"}},
	}

	sum, err := Run(ctx, testSpec(), batches)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if sum.Processed != 5 {
		t.Fatalf("Processed = %d, want 5", sum.Processed)
	}
	if sum.Rejected != 1 {
		t.Fatalf("Rejected = %d, want 1", sum.Rejected)
	}
	if sum.RejectCount[cleaner.ReasonMissingIdentifier] != 1 {
		t.Fatalf("RejectCount = %v, want one missing_identifier", sum.RejectCount)
	}
	if sum.Coerced != 1 {
		t.Fatalf("Coerced = %d, want 1 (the n/a likes row)", sum.Coerced)
	}
	if sum.Matched != 3 || sum.Unmatched != 1 {
		t.Fatalf("Matched/Unmatched = %d/%d, want 3/1", sum.Matched, sum.Unmatched)
	}

	// Row accounting: every parsed row joins or is rejected.
	if sum.Matched+sum.Unmatched+sum.Rejected != sum.Processed {
		t.Fatalf("accounting broken: %+v", sum)
	}

	if len(sum.Partitions) != 2 {
		t.Fatalf("Partitions = %d, want 2 (GB, US)", len(sum.Partitions))
	}

	// The catalog entry is registered and points at the dataset prefix.
	entry, ok, err := cat.Get(ctx, "trending_joined")
	if err != nil || !ok {
		t.Fatalf("catalog Get = ok=%v err=%v", ok, err)
	}
	if entry.Location != "trending_joined/" {
		t.Fatalf("entry.Location = %q", entry.Location)
	}

	// Read the US partition back and verify the labels.
	rc, err := store.Get(ctx, "trending_joined/region=US/part-00000.parquet")
	if err != nil {
		t.Fatalf("Get(partition) error = %v", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read partition: %v", err)
	}
	rows, err := writer.DecodePartition(ctx, data)
	if err != nil {
		t.Fatalf("DecodePartition() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("US partition rows = %d, want 3", len(rows))
	}

	labels := map[string]string{}
	for _, r := range rows {
		if r.CategoryLabel != nil {
			labels[r.VideoID] = *r.CategoryLabel
		} else {
			labels[r.VideoID] = "<nil>"
		}
	}
	if labels["v1"] != "Film & Animation" || labels["v2"] != "Music" || labels["v3"] != "<nil>" {
		t.Fatalf("labels = %v", labels)
	}
}

func TestRunMalformedReferenceAborts(t *testing.T) {
	seedStore(t, map[string]string{
		"raw/US/categories.json": `{"items":[{"id":"x","snippet":{"title":"Bad"}}]}`,
		"raw/US/trending.csv":    usMeasurements,
	})
	cat := pinCatalog(t)

	_, err := Run(context.Background(), testSpec(), []Batch{
		{Region: "US", ReferenceKey: "raw/US/categories.json", MeasurementKeys: []string{"raw/US/trending.csv"}},
	})

	var mde *refdata.MalformedDocumentError
	if !errors.As(err, &mde) {
		t.Fatalf("error = %v, want *MalformedDocumentError", err)
	}

	// Nothing was published.
	if _, ok, _ := cat.Get(context.Background(), "trending_joined"); ok {
		t.Fatal("catalog entry exists despite aborted run")
	}
}

func TestRunSchemaMismatchAborts(t *testing.T) {
	seedStore(t, map[string]string{
		"raw/US/categories.json": usReference,
		"raw/US/other.csv":       "foo,bar\n1,2\n",
	})
	pinCatalog(t)

	_, err := Run(context.Background(), testSpec(), []Batch{
		{Region: "US", ReferenceKey: "raw/US/categories.json", MeasurementKeys: []string{"raw/US/other.csv"}},
	})

	var sme *cleaner.SchemaMismatchError
	if !errors.As(err, &sme) {
		t.Fatalf("error = %v, want *SchemaMismatchError", err)
	}
}

func TestRunMissingBlobAborts(t *testing.T) {
	seedStore(t, map[string]string{
		"raw/US/categories.json": usReference,
	})
	pinCatalog(t)

	_, err := Run(context.Background(), testSpec(), []Batch{
		{Region: "US", ReferenceKey: "raw/US/categories.json", MeasurementKeys: []string{"raw/US/missing.csv"}},
	})
	if err == nil {
		t.Fatal("Run() succeeded with a missing measurement blob")
	}
}

func TestRunBatchValidation(t *testing.T) {
	seedStore(t, nil)
	pinCatalog(t)
	ctx := context.Background()

	if _, err := Run(ctx, testSpec(), nil); err == nil {
		t.Fatal("Run() accepted zero batches")
	}

	batches := []Batch{
		{Region: "US", ReferenceKey: "a"},
		{Region: "US", ReferenceKey: "b"},
	}
	if _, err := Run(ctx, testSpec(), batches); err == nil || !strings.Contains(err.Error(), "duplicate batch") {
		t.Fatalf("Run() error = %v, want duplicate batch", err)
	}

	if _, err := Run(ctx, testSpec(), []Batch{{Region: ""}}); err == nil {
		t.Fatal("Run() accepted empty region")
	}
}

func TestRunInvalidConfig(t *testing.T) {
	spec := testSpec()
	spec.Dataset = ""
	if _, err := Run(context.Background(), spec, []Batch{{Region: "US"}}); err == nil {
		t.Fatal("Run() accepted invalid config")
	}
}
