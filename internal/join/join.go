// Package join combines cleansed Measurements with ReferenceEntries on the
// composite key (category_id, region). The join is a hash build over the
// reference side (small) and a single probe pass over the measurement side
// (large), so cost stays linear in rows plus entries.
//
// Left-join semantics: every measurement produces exactly one joined record.
// On an index miss — including when category_id carries the unknown sentinel
// from cleaning — the label is explicitly nil, never a dropped row.
package join

import (
	"fmt"

	"trendmart/internal/schema"
)

// key is the composite probe key. Region is part of the key: the same
// category id legitimately maps to different labels across regions.
type key struct {
	categoryID int64
	region     string
}

// DuplicateKeyError reports two reference entries sharing (category_id,
// region). The normalizer's uniqueness invariant forbids this within one
// document, so seeing it here means an upstream defect; the join refuses to
// pick a winner arbitrarily.
type DuplicateKeyError struct {
	CategoryID int64
	Region     string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate reference key (category_id=%d, region=%s)", e.CategoryID, e.Region)
}

// Index is the immutable probe index built from a complete reference set.
// The full set must be indexed before any probing, since a later entry must
// still resolve earlier measurements.
type Index struct {
	labels map[key]string
}

// BuildIndex indexes entries by (category_id, region). A duplicate key is a
// *DuplicateKeyError.
func BuildIndex(entries []schema.ReferenceEntry) (*Index, error) {
	labels := make(map[key]string, len(entries))
	for _, e := range entries {
		k := key{categoryID: e.CategoryID, region: e.Region}
		if _, dup := labels[k]; dup {
			return nil, &DuplicateKeyError{CategoryID: e.CategoryID, Region: e.Region}
		}
		labels[k] = e.Label
	}
	return &Index{labels: labels}, nil
}

// Lookup resolves one (category_id, region) pair.
func (ix *Index) Lookup(categoryID int64, region string) (string, bool) {
	label, ok := ix.labels[key{categoryID: categoryID, region: region}]
	return label, ok
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int { return len(ix.labels) }

// Left joins measurements against entries, preserving cardinality exactly:
// len(output) == len(measurements) for every input.
func Left(measurements []schema.Measurement, entries []schema.ReferenceEntry) ([]schema.JoinedRecord, error) {
	ix, err := BuildIndex(entries)
	if err != nil {
		return nil, err
	}
	return LeftWithIndex(measurements, ix), nil
}

// LeftWithIndex probes a prebuilt index. Useful when one reference set
// serves several measurement files in a run.
func LeftWithIndex(measurements []schema.Measurement, ix *Index) []schema.JoinedRecord {
	out := make([]schema.JoinedRecord, len(measurements))
	for i, m := range measurements {
		rec := schema.JoinedRecord{Measurement: m}
		if m.CategoryID != nil {
			if label, ok := ix.Lookup(*m.CategoryID, m.Region); ok {
				l := label
				rec.CategoryLabel = &l
			}
		}
		out[i] = rec
	}
	return out
}
