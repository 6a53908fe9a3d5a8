package refdata

import (
	"errors"
	"strings"
	"testing"
)

const sampleDoc = `{
  "kind": "categoryListResponse",
  "items": [
    {"id": "1",  "snippet": {"title": "Film & Animation", "assignable": true}},
    {"id": "10", "snippet": {"title": "Music", "assignable": true}},
    {"id": "19", "snippet": {"title": "Travel & Events", "assignable": false}}
  ]
}`

func TestNormalize(t *testing.T) {
	t.Parallel()

	entries, err := Normalize(strings.NewReader(sampleDoc), "US")
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	// Count preservation: one entry per input item.
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}

	e0 := entries[0]
	if e0.CategoryID != 1 || e0.Region != "US" || e0.Label != "Film & Animation" || !e0.Assignable {
		t.Fatalf("entries[0] = %+v", e0)
	}
	e2 := entries[2]
	if e2.CategoryID != 19 || e2.Assignable {
		t.Fatalf("entries[2] = %+v", e2)
	}
}

func TestNormalizeMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		doc       string
		region    string
		wantIndex int
		wantIn    string // substring of the error reason
	}{
		{
			name:      "not json",
			doc:       "<xml/>",
			region:    "US",
			wantIndex: -1,
			wantIn:    "decode",
		},
		{
			name:      "empty region",
			doc:       sampleDoc,
			region:    "  ",
			wantIndex: -1,
			wantIn:    "region",
		},
		{
			name:      "missing id",
			doc:       `{"items":[{"id":"", "snippet":{"title":"Music"}}]}`,
			region:    "US",
			wantIndex: 0,
			wantIn:    "missing id",
		},
		{
			name:      "non-numeric id",
			doc:       `{"items":[{"id":"abc", "snippet":{"title":"Music"}}]}`,
			region:    "US",
			wantIndex: 0,
			wantIn:    "non-numeric",
		},
		{
			name:      "missing title",
			doc:       `{"items":[{"id":"10", "snippet":{"title":"  "}}]}`,
			region:    "US",
			wantIndex: 0,
			wantIn:    "missing title",
		},
		{
			name: "duplicate key",
			doc: `{"items":[
				{"id":"5", "snippet":{"title":"Pets"}},
				{"id":"5", "snippet":{"title":"Animals"}}
			]}`,
			region:    "US",
			wantIndex: 1,
			wantIn:    "duplicate key 5",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			entries, err := Normalize(strings.NewReader(tt.doc), tt.region)
			if err == nil {
				t.Fatalf("Normalize() = %v entries, want error", len(entries))
			}

			var mde *MalformedDocumentError
			if !errors.As(err, &mde) {
				t.Fatalf("error type = %T, want *MalformedDocumentError", err)
			}
			if mde.Index != tt.wantIndex {
				t.Fatalf("Index = %d, want %d", mde.Index, tt.wantIndex)
			}
			if !strings.Contains(mde.Reason, tt.wantIn) {
				t.Fatalf("Reason = %q, want substring %q", mde.Reason, tt.wantIn)
			}
		})
	}
}

// Two regions may legitimately share category ids with different labels;
// flattening tags each document with its own region so the pairs stay
// distinct downstream.
func TestFlattenRegionTagging(t *testing.T) {
	t.Parallel()

	doc := Document{}
	doc.Items = make([]Item, 1)
	doc.Items[0].ID = "5"
	doc.Items[0].Snippet.Title = "Pets & Animals"

	us, err := Flatten(doc, "US")
	if err != nil {
		t.Fatalf("Flatten(US) error = %v", err)
	}
	gb, err := Flatten(doc, "GB")
	if err != nil {
		t.Fatalf("Flatten(GB) error = %v", err)
	}

	if us[0].Region != "US" || gb[0].Region != "GB" {
		t.Fatalf("regions = %q, %q; want US, GB", us[0].Region, gb[0].Region)
	}
	if us[0].CategoryID != gb[0].CategoryID {
		t.Fatalf("category ids differ: %d vs %d", us[0].CategoryID, gb[0].CategoryID)
	}
}
