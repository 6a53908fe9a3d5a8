// Package records defines the generic row representation exchanged between
// parsers and the cleaner. A Record is a raw, untyped row: values are whatever
// the parser produced (string for CSV cells, string/json.Number/bool for JSON
// fields). Typed structs take over after cleaning.
package records

// Record is one raw row keyed by source column name.
type Record map[string]any

// String returns the value for key as a string, with ok=false when the key is
// absent, nil, or not a string.
func (r Record) String(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
