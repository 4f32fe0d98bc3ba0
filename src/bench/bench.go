// Package bench measures graph fetch latency, sequentially and under
// concurrent load.
package bench

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Stats summarizes one series of timings.
type Stats struct {
	Runs   int
	Mean   time.Duration
	Median time.Duration
	Stdev  time.Duration
	Min    time.Duration
	Max    time.Duration
}

// TimeFunc runs fn the given number of iterations and records the wall
// time of each successful run. Failed runs are logged and excluded.
func TimeFunc(fn func() error, iterations int, log zerolog.Logger) []time.Duration {
	times := make([]time.Duration, 0, iterations)
	for i := 0; i < iterations; i++ {
		t0 := time.Now()
		if err := fn(); err != nil {
			log.Warn().Err(err).Int("iteration", i+1).Msg("Benchmark iteration failed")
			continue
		}
		times = append(times, time.Since(t0))
	}
	return times
}

// Summarize computes the summary statistics of a timing series.
func Summarize(times []time.Duration) Stats {
	if len(times) == 0 {
		return Stats{}
	}

	sorted := make([]time.Duration, len(times))
	copy(sorted, times)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, t := range sorted {
		sum += t
	}
	mean := sum / time.Duration(len(sorted))

	var median time.Duration
	n := len(sorted)
	if n%2 == 1 {
		median = sorted[n/2]
	} else {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	var stdev time.Duration
	if n > 1 {
		var sq float64
		for _, t := range sorted {
			d := float64(t - mean)
			sq += d * d
		}
		stdev = time.Duration(math.Sqrt(sq / float64(n-1)))
	}

	return Stats{
		Runs:   n,
		Mean:   mean,
		Median: median,
		Stdev:  stdev,
		Min:    sorted[0],
		Max:    sorted[n-1],
	}
}

// Percentile returns the nearest-rank percentile of the series. Exact .5
// midpoints of the rank round half-to-even.
func Percentile(values []time.Duration, p float64) time.Duration {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := int(math.RoundToEven(p / 100.0 * float64(len(sorted)-1)))
	if idx < 0 {
		idx = 0
	}
	if idx > len(sorted)-1 {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// ConcurrentResult holds per-round mean times and every individual task
// latency from a concurrent benchmark.
type ConcurrentResult struct {
	RoundMeans []time.Duration
	Latencies  []time.Duration
}

// RunConcurrent launches rounds of concurrent calls to fn and collects
// each task's latency. Failed tasks are logged and excluded.
func RunConcurrent(fn func() error, concurrency, rounds int, log zerolog.Logger) ConcurrentResult {
	result := ConcurrentResult{
		RoundMeans: make([]time.Duration, 0, rounds),
		Latencies:  make([]time.Duration, 0, rounds*concurrency),
	}

	for r := 0; r < rounds; r++ {
		latencies := make([]time.Duration, concurrency)
		errs := make([]error, concurrency)

		var wg sync.WaitGroup
		for i := 0; i < concurrency; i++ {
			wg.Add(1)
			go func(slot int) {
				defer wg.Done()
				t0 := time.Now()
				errs[slot] = fn()
				latencies[slot] = time.Since(t0)
			}(i)
		}
		wg.Wait()

		var roundSum time.Duration
		roundCount := 0
		for i := 0; i < concurrency; i++ {
			if errs[i] != nil {
				log.Warn().Err(errs[i]).Int("round", r+1).Msg("Concurrent benchmark task failed")
				continue
			}
			result.Latencies = append(result.Latencies, latencies[i])
			roundSum += latencies[i]
			roundCount++
		}
		if roundCount > 0 {
			result.RoundMeans = append(result.RoundMeans, roundSum/time.Duration(roundCount))
		}
	}
	return result
}
