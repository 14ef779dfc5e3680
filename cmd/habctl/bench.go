package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// BenchResult summarises a bench run. Latencies are in milliseconds.
type BenchResult struct {
	Requests   int64
	Successes  int64
	Failures   int64
	Duration   time.Duration
	Throughput float64
	LatencyP50 float64
	LatencyP95 float64
	LatencyP99 float64
	LatencyMax float64
	LatencyAvg float64
}

// bench collects request latencies across workers
type bench struct {
	mu        sync.Mutex
	histogram *hdrhistogram.Histogram
	successes int64
	failures  int64
}

func newBench() *bench {
	// 1us to 60s, 3 significant figures
	return &bench{histogram: hdrhistogram.New(1, 60_000_000, 3)}
}

func (b *bench) record(latency time.Duration, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if us := latency.Microseconds(); us > 0 {
		b.histogram.RecordValue(us)
	}
	if ok {
		b.successes++
	} else {
		b.failures++
	}
}

// runBench sends n predictions of planet using c concurrent workers.
func runBench(ctx context.Context, client *Client, planet any, n, c int) BenchResult {
	if c < 1 {
		c = 1
	}
	b := newBench()
	jobs := make(chan struct{})

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < c; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				t0 := time.Now()
				resp, err := client.Predict(planet)
				b.record(time.Since(t0), err == nil && resp.Status == http.StatusOK)
			}
		}()
	}

send:
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- struct{}{}:
		case <-ctx.Done():
			break send
		}
	}
	close(jobs)
	wg.Wait()

	return b.result(time.Since(start))
}

func (b *bench) result(elapsed time.Duration) BenchResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	total := b.successes + b.failures
	res := BenchResult{
		Requests:  total,
		Successes: b.successes,
		Failures:  b.failures,
		Duration:  elapsed,
	}
	if b.histogram.TotalCount() > 0 {
		res.LatencyP50 = float64(b.histogram.ValueAtPercentile(50)) / 1000.0
		res.LatencyP95 = float64(b.histogram.ValueAtPercentile(95)) / 1000.0
		res.LatencyP99 = float64(b.histogram.ValueAtPercentile(99)) / 1000.0
		res.LatencyMax = float64(b.histogram.Max()) / 1000.0
		res.LatencyAvg = b.histogram.Mean() / 1000.0
	}
	if elapsed > 0 {
		res.Throughput = float64(total) / elapsed.Seconds()
	}
	return res
}

func printBench(w io.Writer, r BenchResult) {
	fmt.Fprintf(w, "Requests:    %d (%d ok, %d failed)\n", r.Requests, r.Successes, r.Failures)
	fmt.Fprintf(w, "Duration:    %s\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Throughput:  %.1f req/s\n", r.Throughput)
	fmt.Fprintf(w, "Latency p50: %.2f ms\n", r.LatencyP50)
	fmt.Fprintf(w, "Latency p95: %.2f ms\n", r.LatencyP95)
	fmt.Fprintf(w, "Latency p99: %.2f ms\n", r.LatencyP99)
	fmt.Fprintf(w, "Latency max: %.2f ms\n", r.LatencyMax)
	fmt.Fprintf(w, "Latency avg: %.2f ms\n", r.LatencyAvg)
}
