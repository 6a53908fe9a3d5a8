// Package parser defines how raw measurement bytes become records. Concrete
// implementations live in subpackages (csv, json); the cleaner consumes their
// output without knowing the source format.
package parser

import (
	"io"

	"trendmart/pkg/records"
)

// Parser turns raw bytes into records. The int return is the number of rows
// skipped because they could not be parsed at all (structural damage, not
// value-level problems — those are the cleaner's job).
type Parser interface {
	Parse(r io.Reader) ([]records.Record, int, error)
}
