// Package json implements an NDJSON parser that turns JSON objects into
// records. It supports newline-delimited objects (the common export shape for
// measurement dumps) and, optionally, a single top-level array of objects.
package json

import (
	"encoding/json"
	"fmt"
	"io"

	"trendmart/pkg/records"
)

// Options configures the NDJSON parser.
type Options struct {
	// AllowArrays accepts a top-level JSON array of objects in addition to
	// newline-delimited objects.
	AllowArrays bool
}

// Parser decodes a stream of JSON objects into records.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// Parse reads all objects from r. Non-object top-level values are skipped and
// counted; a top-level array is expanded when AllowArrays is set. Numbers
// decode as json.Number so the cleaner decides the numeric mapping.
func (p *Parser) Parse(r io.Reader) ([]records.Record, int, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var out []records.Record
	var skipped int

	for {
		var raw any
		if err := dec.Decode(&raw); err != nil {
			if err == io.EOF {
				break
			}
			return nil, skipped, fmt.Errorf("ndjson: decode: %w", err)
		}

		switch v := raw.(type) {
		case map[string]any:
			out = append(out, records.Record(v))
		case []any:
			if !p.opt.AllowArrays {
				return nil, skipped, fmt.Errorf("ndjson: top-level array encountered but allow_arrays=false")
			}
			for i, elem := range v {
				obj, ok := elem.(map[string]any)
				if !ok {
					return nil, skipped, fmt.Errorf("ndjson: element %d in array is not an object", i)
				}
				out = append(out, records.Record(obj))
			}
		default:
			skipped++
		}
	}

	return out, skipped, nil
}
