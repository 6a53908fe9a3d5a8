// This file adds a lightweight linter/validator for Pipeline values. It
// performs static checks over a decoded Pipeline and returns a list of issues
// (errors and warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding for a Pipeline.
//
// Path is a dotted path into the config (e.g. "catalog.kind", "blob.s3.bucket").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect one.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// ValidatePipeline performs static validation of a Pipeline. It does not
// mutate the pipeline; callers decide whether warnings are fatal.
func ValidatePipeline(p Pipeline) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}
	if strings.TrimSpace(p.Dataset) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "dataset",
			Message:  "dataset must not be empty; it names the catalog entry the run publishes",
		})
	}

	issues = append(issues, validateParser(p.Parser)...)
	issues = append(issues, validateCatalog(p.Catalog)...)
	issues = append(issues, validateBlob(p.Blob)...)
	issues = append(issues, validateRuntime(p.Runtime)...)

	return issues
}

func validateParser(p Parser) []Issue {
	var issues []Issue

	if strings.TrimSpace(p.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "parser.kind",
			Message:  "parser.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{"csv": {}, "ndjson": {}}
	if _, ok := known[p.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "parser.kind",
			Message:  fmt.Sprintf("unknown parser kind %q; ensure a matching implementation exists", p.Kind),
		})
	}

	if p.Kind == "csv" {
		if c := p.Options.String("comma", ","); len([]rune(c)) != 1 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "parser.options.comma",
				Message:  "comma must be a single character",
			})
		}
	}

	return issues
}

func validateCatalog(c Catalog) []Issue {
	var issues []Issue

	if strings.TrimSpace(c.Kind) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "catalog.kind",
			Message:  "catalog.kind must not be empty",
		})
		return issues
	}

	known := map[string]struct{}{"memory": {}, "sqlite": {}, "postgres": {}}
	if _, ok := known[c.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "catalog.kind",
			Message:  fmt.Sprintf("unknown catalog kind %q; ensure a matching backend is registered", c.Kind),
		})
	}

	if c.Kind != "memory" && strings.TrimSpace(c.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "catalog.dsn",
			Message:  fmt.Sprintf("catalog kind %q requires a non-empty dsn", c.Kind),
		})
	}

	return issues
}

func validateBlob(b Blob) []Issue {
	var issues []Issue

	if strings.TrimSpace(b.Driver) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "blob.driver",
			Message:  "blob.driver must not be empty",
		})
		return issues
	}

	switch b.Driver {
	case "fs":
		if strings.TrimSpace(b.FS.Root) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "blob.fs.root",
				Message:  "fs driver requires a non-empty root directory",
			})
		}
	case "s3":
		if strings.TrimSpace(b.S3.Bucket) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "blob.s3.bucket",
				Message:  "s3 driver requires a non-empty bucket",
			})
		}
		if b.S3.Endpoint != "" && !b.S3.PathStyle {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "blob.s3.path_style",
				Message:  "custom endpoints usually require path_style=true (MinIO)",
			})
		}
	case "memory":
		// no options
	default:
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "blob.driver",
			Message:  fmt.Sprintf("unknown blob driver %q; ensure a matching implementation exists", b.Driver),
		})
	}

	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue

	if r.CleanWorkers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.clean_workers",
			Message:  "clean_workers must be >= 0 (0 selects the default)",
		})
	}
	if r.WriteWorkers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.write_workers",
			Message:  "write_workers must be >= 0 (0 selects the default)",
		})
	}
	if r.RejectSamples < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.reject_samples",
			Message:  "reject_samples must be >= 0 (0 selects the default)",
		})
	}

	return issues
}
