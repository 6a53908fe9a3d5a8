// Package config defines the canonical, JSON-serializable configuration model
// for the transform pipeline. It is intentionally small and explicit so that
// pipeline specs can be loaded from disk (or handed over by the scheduler)
// and passed through the program without additional glue code.
//
// Example (trimmed):
//
//	{
//	  "job":     "trending_us",
//	  "dataset": "trending_joined",
//	  "parser":  { "kind": "csv", "options": { "has_header": true } },
//	  "catalog": { "kind": "sqlite", "dsn": "catalog.db" },
//	  "blob":    { "driver": "fs", "fs": { "root": "./lake" } },
//	  "runtime": { "write_workers": 4 }
//	}
package config

import "encoding/json"

// Pipeline describes one transform pipeline end to end. It is the top-level
// object decoded from a pipeline file; the per-invocation batch (region plus
// raw file keys) arrives separately from the scheduler.
type Pipeline struct {
	// Job labels metrics and run summaries.
	Job string `json:"job"`

	// Dataset is the catalog name of the published joined dataset.
	Dataset string `json:"dataset"`

	// Parser configures how raw measurement bytes become records
	// (e.g. CSV, NDJSON).
	Parser Parser `json:"parser"`

	// Catalog selects and configures the schema catalog backend.
	Catalog Catalog `json:"catalog"`

	// Blob selects and configures the object storage the pipeline reads raw
	// files from and publishes partitions to.
	Blob Blob `json:"blob"`

	Runtime RuntimeConfig `json:"runtime"`
}

// RuntimeConfig controls concurrency and reporting limits.
type RuntimeConfig struct {
	// CleanWorkers bounds concurrent per-region batch processing (parse,
	// clean, join). Batches are independent, so any value >= 1 is safe.
	CleanWorkers int `json:"clean_workers"`

	// WriteWorkers bounds concurrent partition writes. Partitions are
	// disjoint, so any value >= 1 is safe.
	WriteWorkers int `json:"write_workers"`

	// RejectSamples caps how many rejected-row examples are kept verbatim in
	// the run summary; the full count is always reported.
	RejectSamples int `json:"reject_samples"`
}

// Parser selects how to parse raw measurement files into rows.
type Parser struct {
	// Kind selects the parser implementation: "csv" or "ndjson".
	Kind string `json:"kind"`

	// Options is a free-form map interpreted by the parser implementation.
	// For CSV, typical keys include: has_header (bool), comma (string),
	// trim_space (bool).
	Options Options `json:"options"`
}

// Catalog configures the schema catalog backend.
type Catalog struct {
	// Kind selects the backend: "memory", "sqlite", or "postgres".
	Kind string `json:"kind"`

	// DSN is the backend connection string: a file path for sqlite, a
	// pgxpool DSN for postgres. Ignored by the memory backend.
	DSN string `json:"dsn"`
}

// Blob configures the object storage driver.
type Blob struct {
	// Driver selects the implementation: "fs", "memory", or "s3".
	Driver string `json:"driver"`

	FS BlobFS `json:"fs"`
	S3 BlobS3 `json:"s3"`
}

// BlobFS holds options for the "fs" driver.
type BlobFS struct {
	// Root is the local directory the store is rooted at.
	Root string `json:"root"`
}

// BlobS3 holds options for the "s3" driver (AWS S3 or MinIO).
type BlobS3 struct {
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint,omitempty"`   // custom endpoint, e.g. MinIO
	PathStyle bool   `json:"path_style,omitempty"` // required by most MinIO setups
}

// Options is a small helper to fetch typed values from arbitrary JSON maps
// without introducing a configuration framework. It performs only minimal
// type coercion and returns provided defaults when a key is absent or of an
// unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64,
// so this method accepts float64 and casts to int.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. Useful for single-character settings such as a CSV
// delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// UnmarshalJSON decodes a missing or null "options" object to a non-nil,
// empty Options map so call sites need no nil checks.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
