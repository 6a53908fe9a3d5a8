package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"trendmart/internal/blob"
	"trendmart/internal/catalog"
	"trendmart/internal/config"
	"trendmart/internal/schema"
	"trendmart/internal/writer"

	_ "trendmart/internal/catalog/all"
)

// report is the JSON document catprobe prints: the catalog entry plus a
// per-partition summary read back from storage.
type report struct {
	Entry      catalog.Entry `json:"entry"`
	Partitions []partition   `json:"partitions"`
}

type partition struct {
	Key       string    `json:"key"`
	SizeBytes int64     `json:"size_bytes"`
	Modified  time.Time `json:"last_modified"`
	Rows      int       `json:"rows,omitempty"`
	Matched   int       `json:"matched,omitempty"`
	Unmatched int       `json:"unmatched,omitempty"`

	Sample []schema.JoinedRecord `json:"sample,omitempty"`
}

// main inspects a published dataset: it resolves the catalog entry, lists the
// partition files under the entry's location, and optionally decodes them to
// report row counts, label match rates, and sample rows. Intended for
// eyeballing a fresh publish without a query engine.
func main() {
	var (
		flagConfig  = flag.String("config", "", "pipeline config JSON path (catalog + blob sections are used)")
		flagDataset = flag.String("dataset", "", "dataset name; defaults to the config's dataset")
		flagDecode  = flag.Bool("decode", true, "decode partition files to count rows and label matches")
		flagSample  = flag.Int("sample", 0, "include up to N sample rows per partition in the output")
		flagPretty  = flag.Bool("pretty", true, "pretty-print JSON output")
	)
	flag.Parse()

	if *flagConfig == "" {
		fmt.Fprintln(os.Stderr, "missing -config")
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*flagConfig)
	if err != nil {
		log.Fatalf("open config: %v", err)
	}
	var p config.Pipeline
	if err := json.NewDecoder(f).Decode(&p); err != nil {
		log.Fatalf("decode config: %v", err)
	}
	f.Close()

	dataset := *flagDataset
	if dataset == "" {
		dataset = p.Dataset
	}
	if dataset == "" {
		log.Fatalf("no dataset given and none set in config")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	rep, err := probe(ctx, p, dataset, *flagDecode, *flagSample)
	if err != nil {
		log.Fatalf("catprobe: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	if *flagPretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(rep); err != nil {
		log.Fatalf("encode report: %v", err)
	}
}

func probe(ctx context.Context, p config.Pipeline, dataset string, decode bool, sample int) (report, error) {
	cat, err := catalog.New(ctx, catalog.Config{Kind: p.Catalog.Kind, DSN: p.Catalog.DSN})
	if err != nil {
		return report{}, fmt.Errorf("open catalog: %w", err)
	}
	defer cat.Close()

	entry, ok, err := cat.Get(ctx, dataset)
	if err != nil {
		return report{}, fmt.Errorf("catalog lookup: %w", err)
	}
	if !ok {
		return report{}, fmt.Errorf("dataset %q not in catalog", dataset)
	}

	store, err := blob.Open(ctx, p.Blob)
	if err != nil {
		return report{}, fmt.Errorf("open blob store: %w", err)
	}

	infos, err := store.List(ctx, entry.Location)
	if err != nil {
		return report{}, fmt.Errorf("list %s: %w", entry.Location, err)
	}

	rep := report{Entry: entry}
	for _, info := range infos {
		part := partition{Key: info.Key, SizeBytes: info.Size, Modified: info.LastModified}
		if decode {
			recs, err := readPartition(ctx, store, info.Key)
			if err != nil {
				return report{}, fmt.Errorf("decode %s: %w", info.Key, err)
			}
			part.Rows = len(recs)
			for _, r := range recs {
				if r.CategoryLabel != nil {
					part.Matched++
				} else {
					part.Unmatched++
				}
			}
			if sample > 0 {
				n := sample
				if n > len(recs) {
					n = len(recs)
				}
				part.Sample = recs[:n]
			}
		}
		rep.Partitions = append(rep.Partitions, part)
	}
	return rep, nil
}

func readPartition(ctx context.Context, store blob.Store, key string) ([]schema.JoinedRecord, error) {
	rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return writer.DecodePartition(ctx, data)
}
