package parser

import (
	"strings"
	"testing"

	"trendmart/internal/config"
)

func TestFromConfig(t *testing.T) {
	t.Parallel()

	csvP, err := FromConfig(config.Parser{
		Kind:    "csv",
		Options: config.Options{"comma": ";", "has_header": true},
	})
	if err != nil {
		t.Fatalf("FromConfig(csv) error = %v", err)
	}
	rows, _, err := csvP.Parse(strings.NewReader("a;b\n1;2\n"))
	if err != nil || len(rows) != 1 {
		t.Fatalf("csv Parse() = %v rows, err=%v", len(rows), err)
	}

	jsonP, err := FromConfig(config.Parser{Kind: "ndjson", Options: config.Options{}})
	if err != nil {
		t.Fatalf("FromConfig(ndjson) error = %v", err)
	}
	rows, _, err = jsonP.Parse(strings.NewReader(`{"a":1}`))
	if err != nil || len(rows) != 1 {
		t.Fatalf("ndjson Parse() = %v rows, err=%v", len(rows), err)
	}

	if _, err := FromConfig(config.Parser{Kind: "parquet"}); err == nil {
		t.Fatal("FromConfig() accepted unsupported kind")
	}
}
