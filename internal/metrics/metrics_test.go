package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeBackend is a simple in-memory Backend implementation for tests.
type fakeBackend struct {
	mu sync.Mutex

	callsCounters   []counterCall
	callsHistograms []histCall
	flushCount      int
}

type counterCall struct {
	name   string
	delta  float64
	labels Labels
}

type histCall struct {
	name   string
	value  float64
	labels Labels
}

func (f *fakeBackend) IncCounter(name string, delta float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsCounters = append(f.callsCounters, counterCall{name, delta, labels})
}

func (f *fakeBackend) ObserveHistogram(name string, value float64, labels Labels) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsHistograms = append(f.callsHistograms, histCall{name, value, labels})
}

func (f *fakeBackend) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushCount++
	return nil
}

func TestRecordStep_SuccessAndFailure(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordStep("jobA", "normalize", nil, 2*time.Second)

	err := errors.New("boom")
	RecordStep("jobB", "publish", err, 1500*time.Millisecond)

	if len(fb.callsCounters) != 2 {
		t.Fatalf("expected 2 counter calls, got %d", len(fb.callsCounters))
	}
	if len(fb.callsHistograms) != 2 {
		t.Fatalf("expected 2 histogram calls, got %d", len(fb.callsHistograms))
	}

	cc0 := fb.callsCounters[0]
	if cc0.name != "pipeline_step_total" || cc0.delta != 1 {
		t.Fatalf("counter[0] = %#v; want name=pipeline_step_total, delta=1", cc0)
	}
	if got := cc0.labels["job"]; got != "jobA" {
		t.Fatalf("counter[0].labels[job]=%q; want %q", got, "jobA")
	}
	if got := cc0.labels["step"]; got != "normalize" {
		t.Fatalf("counter[0].labels[step]=%q; want %q", got, "normalize")
	}
	if got := cc0.labels["status"]; got != "success" {
		t.Fatalf("counter[0].labels[status]=%q; want %q", got, "success")
	}

	h0 := fb.callsHistograms[0]
	if h0.name != "pipeline_step_duration_seconds" {
		t.Fatalf("hist[0].name=%q; want pipeline_step_duration_seconds", h0.name)
	}
	if h0.value < 2.0-0.001 || h0.value > 2.0+0.001 {
		t.Fatalf("hist[0].value=%v; want ~2.0", h0.value)
	}

	cc1 := fb.callsCounters[1]
	if cc1.labels["job"] != "jobB" || cc1.labels["step"] != "publish" {
		t.Fatalf("counter[1] labels job/step = %v; want jobB/publish", cc1.labels)
	}
	if cc1.labels["status"] != "failure" {
		t.Fatalf("counter[1].labels[status]=%q; want %q", cc1.labels["status"], "failure")
	}

	h1 := fb.callsHistograms[1]
	if h1.value < 1.5-0.001 || h1.value > 1.5+0.001 {
		t.Fatalf("hist[1].value=%v; want ~1.5", h1.value)
	}
}

func TestRecordRowAndPartition(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	backend = fb

	RecordRow("jobX", "processed", 3)
	RecordRow("jobX", "processed", 0) // ignored
	RecordRow("jobY", "rejected", 5)
	RecordPartition("jobZ", "trending_joined", "US", 120, 4096)

	if len(fb.callsCounters) != 5 {
		t.Fatalf("expected 5 counter calls, got %d", len(fb.callsCounters))
	}

	c0 := fb.callsCounters[0]
	if c0.name != "pipeline_rows_total" || c0.delta != 3 {
		t.Fatalf("counter[0] = %#v; want name=pipeline_rows_total, delta=3", c0)
	}
	if c0.labels["job"] != "jobX" || c0.labels["kind"] != "processed" {
		t.Fatalf("counter[0] labels = %v; want job=jobX, kind=processed", c0.labels)
	}

	c1 := fb.callsCounters[1]
	if c1.name != "pipeline_rows_total" || c1.delta != 5 {
		t.Fatalf("counter[1] = %#v; want name=pipeline_rows_total, delta=5", c1)
	}
	if c1.labels["job"] != "jobY" || c1.labels["kind"] != "rejected" {
		t.Fatalf("counter[1] labels = %v; want job=jobY, kind=rejected", c1.labels)
	}

	wantPartition := []struct {
		name  string
		delta float64
	}{
		{"pipeline_partitions_total", 1},
		{"pipeline_partition_rows_total", 120},
		{"pipeline_partition_bytes_total", 4096},
	}
	for i, want := range wantPartition {
		c := fb.callsCounters[2+i]
		if c.name != want.name || c.delta != want.delta {
			t.Fatalf("counter[%d] = %#v; want name=%s, delta=%v", 2+i, c, want.name, want.delta)
		}
		if c.labels["dataset"] != "trending_joined" || c.labels["region"] != "US" {
			t.Fatalf("counter[%d] labels = %v; want dataset=trending_joined, region=US", 2+i, c.labels)
		}
	}
}

func TestSetBackendAndFlush(t *testing.T) {
	orig := backend
	defer func() { backend = orig }()

	fb := &fakeBackend{}
	SetBackend(fb)

	if backend != fb {
		t.Fatal("SetBackend did not replace global backend")
	}

	if err := Flush(); err != nil {
		t.Fatalf("Flush returned error: %v", err)
	}
	if fb.flushCount != 1 {
		t.Fatalf("expected flushCount=1, got %d", fb.flushCount)
	}

	// SetBackend(nil) should not nil out the backend.
	SetBackend(nil)
	if backend != fb {
		t.Fatal("SetBackend(nil) should not change backend")
	}
}
