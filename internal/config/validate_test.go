package config

import (
	"strings"
	"testing"
)

func validPipeline() Pipeline {
	return Pipeline{
		Job:     "trending_daily",
		Dataset: "trending_joined",
		Parser:  Parser{Kind: "csv", Options: Options{}},
		Catalog: Catalog{Kind: "sqlite", DSN: "catalog.db"},
		Blob:    Blob{Driver: "fs", FS: BlobFS{Root: "./lake"}},
	}
}

func errorPaths(issues []Issue) []string {
	var out []string
	for _, i := range issues {
		if i.Severity == SeverityError {
			out = append(out, i.Path)
		}
	}
	return out
}

func TestValidatePipeline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		mutate     func(*Pipeline)
		wantErrs   []string // paths of expected error-severity issues
		wantWarnIn string   // substring of one expected warning message
	}{
		{
			name:   "valid config has no issues",
			mutate: func(p *Pipeline) {},
		},
		{
			name:     "empty job and dataset",
			mutate:   func(p *Pipeline) { p.Job = " "; p.Dataset = "" },
			wantErrs: []string{"job", "dataset"},
		},
		{
			name:     "empty parser kind",
			mutate:   func(p *Pipeline) { p.Parser.Kind = "" },
			wantErrs: []string{"parser.kind"},
		},
		{
			name:       "unknown parser kind warns",
			mutate:     func(p *Pipeline) { p.Parser.Kind = "avro" },
			wantWarnIn: "unknown parser kind",
		},
		{
			name:     "multi-char csv delimiter",
			mutate:   func(p *Pipeline) { p.Parser.Options = Options{"comma": "ab"} },
			wantErrs: []string{"parser.options.comma"},
		},
		{
			name:     "sqlite without dsn",
			mutate:   func(p *Pipeline) { p.Catalog.DSN = "" },
			wantErrs: []string{"catalog.dsn"},
		},
		{
			name: "memory catalog needs no dsn",
			mutate: func(p *Pipeline) {
				p.Catalog = Catalog{Kind: "memory"}
			},
		},
		{
			name:     "fs blob without root",
			mutate:   func(p *Pipeline) { p.Blob = Blob{Driver: "fs"} },
			wantErrs: []string{"blob.fs.root"},
		},
		{
			name:     "s3 blob without bucket",
			mutate:   func(p *Pipeline) { p.Blob = Blob{Driver: "s3"} },
			wantErrs: []string{"blob.s3.bucket"},
		},
		{
			name: "s3 custom endpoint without path style warns",
			mutate: func(p *Pipeline) {
				p.Blob = Blob{Driver: "s3", S3: BlobS3{Bucket: "b", Endpoint: "http://minio:9000"}}
			},
			wantWarnIn: "path_style",
		},
		{
			name:     "negative runtime knobs",
			mutate:   func(p *Pipeline) { p.Runtime = RuntimeConfig{CleanWorkers: -1, WriteWorkers: -2, RejectSamples: -3} },
			wantErrs: []string{"runtime.clean_workers", "runtime.write_workers", "runtime.reject_samples"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := validPipeline()
			tt.mutate(&p)
			issues := ValidatePipeline(p)

			got := errorPaths(issues)
			if len(got) != len(tt.wantErrs) {
				t.Fatalf("error paths = %v, want %v", got, tt.wantErrs)
			}
			for i, path := range tt.wantErrs {
				if got[i] != path {
					t.Fatalf("error paths = %v, want %v", got, tt.wantErrs)
				}
			}

			if tt.wantWarnIn != "" {
				found := false
				for _, is := range issues {
					if is.Severity == SeverityWarning && strings.Contains(is.Message, tt.wantWarnIn) {
						found = true
					}
				}
				if !found {
					t.Fatalf("issues = %v, want warning containing %q", issues, tt.wantWarnIn)
				}
			}
		})
	}
}

func TestIssueError(t *testing.T) {
	t.Parallel()

	i := Issue{Severity: SeverityError, Path: "catalog.kind", Message: "must not be empty"}
	want := "error at catalog.kind: must not be empty"
	if i.Error() != want {
		t.Fatalf("Error() = %q, want %q", i.Error(), want)
	}
}
