// Package cleaner turns raw tabular rows into typed Measurements against a
// schema contract: canonical column names via the contract's alias table,
// numeric coercion with an explicit unknown sentinel, timestamp parsing, and
// encoding normalization of free text.
//
// The cleaner never fails for per-row issues — rows are coerced or rejected
// and both are counted and reported. The one fatal condition is a dataset
// whose columns do not overlap the contract at all (wrong file entirely),
// which is a *SchemaMismatchError.
package cleaner

import (
	"fmt"
	"sort"
	"strings"

	"trendmart/internal/schema"
	"trendmart/pkg/records"
)

// Reject reasons reported alongside the cleansed output.
const (
	ReasonMissingIdentifier = "missing_identifier"
	ReasonMissingRegion     = "missing_region"
	ReasonBadTimestamp      = "bad_timestamp"
)

// RejectedRow is one input row excluded from the output, kept verbatim with
// the reason so operators can audit what was dropped.
type RejectedRow struct {
	Line   int // 1-based position in the input sequence
	Raw    records.Record
	Reason string
}

// Result is the aggregate outcome of cleaning one raw dataset.
type Result struct {
	Measurements []schema.Measurement
	// CoercedRows counts rows where at least one numeric field fell back to
	// the unknown sentinel.
	CoercedRows int
	Rejected    []RejectedRow
}

// SchemaMismatchError means the raw dataset shares no columns with the
// contract — a mis-routed file rather than a dirty one.
type SchemaMismatchError struct {
	Contract string
	Observed []string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch: no overlap between contract %q and observed columns %v",
		e.Contract, e.Observed)
}

// Clean cleanses rows against contract. defaultRegion fills the region field
// for exports that carry no region column (the usual case — the scheduler
// routes one file per region); a row with neither is rejected.
func Clean(rows []records.Record, contract schema.Contract, defaultRegion string) (Result, error) {
	var res Result
	if len(rows) == 0 {
		return res, nil
	}

	aliases := contract.AliasTable()
	if err := checkOverlap(rows, aliases, contract.Name); err != nil {
		return Result{}, err
	}

	tsField, _ := contract.FieldByName("published_at")
	layout := tsField.Layout
	if layout == "" {
		layout = schema.Layout
	}

	required := make(map[string]bool, len(contract.Fields))
	for _, f := range contract.Fields {
		required[f.Name] = f.Required
	}

	res.Measurements = make([]schema.Measurement, 0, len(rows))
	for i, raw := range rows {
		line := i + 1
		row := canonicalize(raw, aliases)

		m, coerced, reason := cleanRow(row, layout, defaultRegion, required)
		if reason != "" {
			res.Rejected = append(res.Rejected, RejectedRow{Line: line, Raw: raw, Reason: reason})
			continue
		}
		if coerced {
			res.CoercedRows++
		}
		res.Measurements = append(res.Measurements, m)
	}

	return res, nil
}

// canonicalize renames raw keys to canonical contract names, dropping columns
// the contract does not know.
func canonicalize(raw records.Record, aliases map[string]string) records.Record {
	row := make(records.Record, len(raw))
	for k, v := range raw {
		if canonical, ok := aliases[k]; ok {
			row[canonical] = v
		}
	}
	return row
}

// cleanRow builds one Measurement. A non-empty reason rejects the row.
// Which blank fields reject is driven by the contract's Required flags.
func cleanRow(row records.Record, layout, defaultRegion string, required map[string]bool) (schema.Measurement, bool, string) {
	var m schema.Measurement

	id := strings.TrimSpace(stringValue(row["video_id"]))
	if id == "" && required["video_id"] {
		return m, false, ReasonMissingIdentifier
	}
	region := strings.TrimSpace(stringValue(row["region"]))
	if region == "" {
		region = defaultRegion
	}
	if region == "" && required["region"] {
		return m, false, ReasonMissingRegion
	}

	ts, ok := coerceTime(row["published_at"], layout)
	if !ok && required["published_at"] {
		// A record with no usable timestamp cannot be analyzed; rejecting
		// beats guessing one.
		return m, false, ReasonBadTimestamp
	}

	m.VideoID = id
	m.Region = region
	m.PublishedAt = ts
	m.Title = normalizeText(stringValue(row["title"]))
	m.Description = normalizeText(stringValue(row["description"]))
	m.Tags = normalizeText(stringValue(row["tags"]))

	coerced := false
	m.CategoryID = coerceCounting(row["category_id"], &coerced)
	m.Views = coerceCounting(row["views"], &coerced)
	m.Likes = coerceCounting(row["likes"], &coerced)
	m.Comments = coerceCounting(row["comments"], &coerced)

	return m, coerced, ""
}

// coerceCounting coerces one numeric field and flags the row when a present
// value fell back to unknown. Absent values are nil without counting.
func coerceCounting(v any, coerced *bool) *int64 {
	val, outcome := coerceInt(v)
	if outcome == OutcomeUnknown {
		*coerced = true
	}
	return val
}

// overlapProbeRows bounds how many leading rows checkOverlap inspects. NDJSON
// rows carry heterogeneous key sets, so a sparse first row alone must not
// condemn the file.
const overlapProbeRows = 25

// checkOverlap confirms at least one observed column among the leading rows
// resolves through the alias table.
func checkOverlap(rows []records.Record, aliases map[string]string, contractName string) error {
	n := len(rows)
	if n > overlapProbeRows {
		n = overlapProbeRows
	}
	seen := make(map[string]struct{})
	for _, row := range rows[:n] {
		for k := range row {
			if _, ok := aliases[k]; ok {
				return nil
			}
			seen[k] = struct{}{}
		}
	}
	observed := make([]string, 0, len(seen))
	for k := range seen {
		observed = append(observed, k)
	}
	sort.Strings(observed)
	return &SchemaMismatchError{Contract: contractName, Observed: observed}
}
