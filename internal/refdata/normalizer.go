// Package refdata flattens nested category reference documents into uniform
// ReferenceEntry rows. One document covers one region; the region is supplied
// by the caller because raw documents carry no region field.
//
// Normalization is fail-fast: a single bad item invalidates the whole
// document rather than being dropped, because a silently missing category
// degrades every joined record downstream.
package refdata

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"trendmart/internal/schema"
)

// Document is the raw nested reference document shape. Only the fields the
// normalizer reads are modeled; unknown fields are ignored.
type Document struct {
	Items []Item `json:"items"`
}

// Item is one nested category item. The key arrives as a string-typed number.
type Item struct {
	ID      string `json:"id"`
	Snippet struct {
		Title      string `json:"title"`
		Assignable bool   `json:"assignable"`
	} `json:"snippet"`
}

// MalformedDocumentError reports why a reference document failed
// normalization. Index is the offending item's position, or -1 for
// document-level problems.
type MalformedDocumentError struct {
	Region string
	Index  int
	Reason string
}

func (e *MalformedDocumentError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("malformed reference document (region=%s): %s", e.Region, e.Reason)
	}
	return fmt.Sprintf("malformed reference document (region=%s, item=%d): %s", e.Region, e.Index, e.Reason)
}

// Normalize decodes one nested reference document from r and flattens it into
// ReferenceEntry rows tagged with region. Every input item yields exactly one
// entry; a missing key or title, a non-numeric key, or a duplicate key within
// the document is a *MalformedDocumentError.
func Normalize(r io.Reader, region string) ([]schema.ReferenceEntry, error) {
	if strings.TrimSpace(region) == "" {
		return nil, &MalformedDocumentError{Region: region, Index: -1, Reason: "region must not be empty"}
	}

	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, &MalformedDocumentError{Region: region, Index: -1, Reason: fmt.Sprintf("decode: %v", err)}
	}

	return Flatten(doc, region)
}

// Flatten is the decode-free half of Normalize, useful when the document is
// already in memory.
func Flatten(doc Document, region string) ([]schema.ReferenceEntry, error) {
	entries := make([]schema.ReferenceEntry, 0, len(doc.Items))
	seen := make(map[int64]int, len(doc.Items)) // key -> first item index

	for i, item := range doc.Items {
		if strings.TrimSpace(item.ID) == "" {
			return nil, &MalformedDocumentError{Region: region, Index: i, Reason: "missing id"}
		}
		key, err := strconv.ParseInt(strings.TrimSpace(item.ID), 10, 64)
		if err != nil {
			return nil, &MalformedDocumentError{Region: region, Index: i, Reason: fmt.Sprintf("non-numeric id %q", item.ID)}
		}
		if strings.TrimSpace(item.Snippet.Title) == "" {
			return nil, &MalformedDocumentError{Region: region, Index: i, Reason: fmt.Sprintf("missing title for id %d", key)}
		}
		if first, dup := seen[key]; dup {
			return nil, &MalformedDocumentError{
				Region: region,
				Index:  i,
				Reason: fmt.Sprintf("duplicate key %d (first seen at item %d)", key, first),
			}
		}
		seen[key] = i

		entries = append(entries, schema.ReferenceEntry{
			CategoryID: key,
			Region:     region,
			Label:      item.Snippet.Title,
			Assignable: item.Snippet.Assignable,
		})
	}

	return entries, nil
}
