package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"trendmart/internal/config"
	"trendmart/internal/metrics"
	"trendmart/internal/metrics/datadog"
	"trendmart/internal/metrics/prompush"
	"trendmart/internal/pipeline"

	// register all catalog backends with the factory.
	// config specifies which to use but we build in support for all of them.
	_ "trendmart/internal/catalog/all"
)

// main loads the pipeline config and the batch manifest, optionally
// initializes a metrics backend, and executes the run.
func main() {
	var (
		cfgPath           string
		batchesPath       string
		metricsBackendFlg string
		pushGatewayURLFlg string
		dogstatsdAddrFlg  string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/pipelines/sample.json", "pipeline config JSON path")
	flag.StringVar(&batchesPath, "batches", "", "batch manifest JSON path (list of {region, reference_key, measurement_keys})")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (pushgateway, datadog, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&dogstatsdAddrFlg, "dogstatsd-addr", "", "DogStatsD address (overrides env DOGSTATSD_ADDR)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	f, err := os.Open(cfgPath)
	if err != nil {
		fatalf("open config: %v", err)
	}
	defer f.Close()

	var p config.Pipeline
	if err := json.NewDecoder(f).Decode(&p); err != nil {
		fatalf("decode config: %v", err)
	}

	issues := config.ValidatePipeline(p)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		log.Printf("configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}

	if validate {
		log.Printf("configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	if batchesPath == "" {
		fatalf("-batches is required (see -h)")
	}
	batches, err := loadBatches(batchesPath)
	if err != nil {
		fatalf("load batches: %v", err)
	}

	initMetrics(p, metricsBackendFlg, pushGatewayURLFlg, dogstatsdAddrFlg, *verbose)
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}()

	ctx := context.Background()
	start := time.Now()

	if *verbose {
		log.Printf("pipeline: job=%s dataset=%s parser=%s catalog=%s blob=%s batches=%d",
			p.Job, p.Dataset, p.Parser.Kind, p.Catalog.Kind, p.Blob.Driver, len(batches))
	}

	if _, err := pipeline.Run(ctx, p, batches); err != nil {
		log.Fatalf("%v", err)
	}

	if *verbose {
		log.Printf("completed in %s", time.Since(start).Truncate(time.Millisecond))
	}
}

func loadBatches(path string) ([]pipeline.Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var batches []pipeline.Batch
	if err := json.NewDecoder(f).Decode(&batches); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return batches, nil
}

// initMetrics decides the metrics backend: flag → env → default nop.
func initMetrics(p config.Pipeline, backendName, gwURL, dogAddr string, verbose bool) {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}

	jobName := p.Job
	if jobName == "" {
		jobName = "trendmart_job"
	}

	switch backendName {
	case "pushgateway":
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(jobName, gwURL)
		if err != nil {
			log.Printf("metrics: failed to init pushgateway backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=pushgateway url=%s job=%s", gwURL, jobName)
		metrics.SetBackend(b)

	case "datadog":
		if dogAddr == "" {
			dogAddr = os.Getenv("DOGSTATSD_ADDR")
		}
		if dogAddr == "" {
			dogAddr = "127.0.0.1:8125"
		}
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       dogAddr,
			Namespace:  "trendmart.",
			GlobalTags: []string{"job:" + jobName},
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		log.Printf("metrics: backend=datadog addr=%s job=%s", dogAddr, jobName)
		metrics.SetBackend(b)

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
