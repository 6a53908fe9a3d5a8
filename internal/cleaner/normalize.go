package cleaner

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// textNormalizer canonicalizes free-text fields to NFC and removes format
// runes (zero-width spaces, BOMs inside values) that regional exports leak
// into titles and tags. Content is otherwise passed through unmodified.
var textNormalizer = transform.Chain(
	norm.NFC,
	runes.Remove(runes.In(unicode.Cf)),
)

// normalizeText applies the encoding normalization and trims surrounding
// whitespace. Falls back to the input when the transform fails (invalid
// UTF-8 is kept as-is rather than dropped).
func normalizeText(s string) string {
	out, _, err := transform.String(textNormalizer, s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(out)
}
