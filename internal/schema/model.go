// Package schema defines the typed row models flowing through the pipeline
// and the column contract the cleaner enforces on raw tabular input.
package schema

import "time"

// Layout is the canonical timestamp layout for raw measurement files.
const Layout = time.RFC3339

// ReferenceEntry is one flattened row of a per-region category reference
// document: a numeric category key mapped to its human-readable label.
// (Key, Region) is unique within one normalization pass.
type ReferenceEntry struct {
	CategoryID int64  `db:"category_id"`
	Region     string `db:"region"`
	Label      string `db:"label"`
	Assignable bool   `db:"assignable"`
}

// Measurement is one cleansed row of a per-region trending measurement file.
// Nil pointer fields carry the "unknown" outcome of cleaning: the source
// value was absent or not coercible, and must never be read as zero.
type Measurement struct {
	VideoID     string    `db:"video_id"`
	Region      string    `db:"region"`
	CategoryID  *int64    `db:"category_id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Tags        string    `db:"tags"`
	Views       *int64    `db:"views"`
	Likes       *int64    `db:"likes"`
	Comments    *int64    `db:"comments"`
	PublishedAt time.Time `db:"published_at"`
}

// JoinedRecord is a Measurement augmented with the resolved category label.
// CategoryLabel is nil exactly when no ReferenceEntry matched
// (CategoryID, Region); the measurement itself is always preserved.
type JoinedRecord struct {
	Measurement
	CategoryLabel *string `db:"category_label"`
}
