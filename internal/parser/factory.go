package parser

import (
	"fmt"

	"trendmart/internal/config"
	csvparser "trendmart/internal/parser/csv"
	jsonparser "trendmart/internal/parser/json"
)

// FromConfig constructs the parser selected by the pipeline spec.
func FromConfig(cfg config.Parser) (Parser, error) {
	switch cfg.Kind {
	case "csv":
		return csvparser.NewParser(csvparser.Options{
			HasHeader:      cfg.Options.Bool("has_header", true),
			Comma:          cfg.Options.Rune("comma", ','),
			TrimSpace:      cfg.Options.Bool("trim_space", true),
			ExpectedFields: cfg.Options.Int("expected_fields", 0),
			Lenient:        cfg.Options.Bool("lenient", false),
		}), nil
	case "ndjson":
		return jsonparser.NewParser(jsonparser.Options{
			AllowArrays: cfg.Options.Bool("allow_arrays", false),
		}), nil
	default:
		return nil, fmt.Errorf("parser: unsupported kind %q", cfg.Kind)
	}
}
