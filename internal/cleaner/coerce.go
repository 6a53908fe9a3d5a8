package cleaner

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Outcome is the deterministic fate of one ambiguous source value. Every
// field coercion resolves to exactly one of these; there is no silent path.
type Outcome int

const (
	// OutcomeParsed means the value parsed into the target type.
	OutcomeParsed Outcome = iota
	// OutcomeUnknown means the value was absent or not coercible; the field
	// carries the unknown sentinel (nil), never zero.
	OutcomeUnknown
	// OutcomeAbsent means the source had no value at all. Like
	// OutcomeUnknown it yields nil, but it does not count as a coercion.
	OutcomeAbsent
)

// coerceInt parses v into a non-negative int64. Negative and non-numeric
// values map to the unknown sentinel — counts cannot be negative, and zeroing
// a bad value would be indistinguishable from a real zero.
func coerceInt(v any) (*int64, Outcome) {
	switch n := v.(type) {
	case nil:
		return nil, OutcomeAbsent
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil, OutcomeAbsent
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil || i < 0 {
			return nil, OutcomeUnknown
		}
		return &i, OutcomeParsed
	case json.Number:
		i, err := n.Int64()
		if err != nil || i < 0 {
			return nil, OutcomeUnknown
		}
		return &i, OutcomeParsed
	case float64:
		if n < 0 || n != float64(int64(n)) {
			return nil, OutcomeUnknown
		}
		i := int64(n)
		return &i, OutcomeParsed
	case int:
		if n < 0 {
			return nil, OutcomeUnknown
		}
		i := int64(n)
		return &i, OutcomeParsed
	case int64:
		if n < 0 {
			return nil, OutcomeUnknown
		}
		return &n, OutcomeParsed
	default:
		return nil, OutcomeUnknown
	}
}

// coerceTime parses v with layout. ok=false covers both absent and
// unparseable values; the caller decides whether that rejects the row.
func coerceTime(v any, layout string) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// stringValue renders v as a string for free-text fields. Non-string scalars
// are formatted; nil becomes "".
func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}
