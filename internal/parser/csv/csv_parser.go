// Package csv implements a streaming CSV parser for raw measurement files.
// It never buffers the whole input and soft-fails structurally broken rows,
// counting them instead of aborting the file.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"

	"trendmart/pkg/records"
)

// Options configures the CSV parser behavior. All fields are optional;
// sensible defaults are applied when a field is zero.
type Options struct {
	// HasHeader indicates whether the first row contains column headers.
	HasHeader bool

	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool

	// ExpectedFields, when > 0 and HasHeader is false, sets the synthesized
	// column count. Rows of a different width are skipped and counted.
	ExpectedFields int

	// Lenient relaxes quoting rules (LazyQuotes) for real-world exports with
	// unescaped quotes inside fields.
	Lenient bool
}

// Parser parses CSV input according to Options. Safe to reuse across inputs;
// Parser itself is not concurrency-safe.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

const utf8BOM = "\xef\xbb\xbf"

// skipLogLimit caps how many skipped rows are logged individually.
const skipLogLimit = 100

// Parse consumes CSV records from r and returns the parsed rows along with
// the number of rows skipped due to parse errors or field-count mismatches.
// Keys are the source header names verbatim (BOM-stripped, trimmed); alias
// resolution to canonical names happens in the cleaner.
func (p *Parser) Parse(r io.Reader) ([]records.Record, int, error) {
	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	if p.opt.Lenient {
		cr.LazyQuotes = true
		cr.FieldsPerRecord = -1
	}

	var headers []string
	var out []records.Record
	var skipped int

	if p.opt.HasHeader {
		h, err := cr.Read()
		if err != nil {
			return nil, 0, fmt.Errorf("read csv header: %w", err)
		}
		headers = cleanHeaders(h)
	} else if p.opt.ExpectedFields > 0 {
		headers = make([]string, p.opt.ExpectedFields)
		for i := range headers {
			headers[i] = fmt.Sprintf("col_%d", i)
		}
	}

	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if skipped < skipLogLimit {
				log.Printf("csv: skipping row %d: %v", line, err)
			}
			skipped++
			continue
		}
		if len(headers) > 0 && len(row) != len(headers) {
			if skipped < skipLogLimit {
				log.Printf("csv: skipping row %d: expected %d fields, got %d", line, len(headers), len(row))
			}
			skipped++
			continue
		}

		rec := make(records.Record, len(row))
		for i, val := range row {
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[keyFor(i, headers)] = emptyToNil(val)
		}
		out = append(out, rec)
	}

	return out, skipped, nil
}

// keyFor returns the column key for index idx, using headers when available,
// otherwise synthesizing a "col_N" name.
func keyFor(idx int, headers []string) string {
	if idx < len(headers) && headers[idx] != "" {
		return headers[idx]
	}
	return fmt.Sprintf("col_%d", idx)
}

// emptyToNil converts an empty string to nil; other values pass through.
func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// cleanHeaders trims each header cell and strips a UTF-8 BOM from the first.
func cleanHeaders(h []string) []string {
	res := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		res[i] = c
	}
	return res
}
