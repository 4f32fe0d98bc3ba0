package bench

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeFuncSkipsFailedRuns(t *testing.T) {
	calls := 0
	times := TimeFunc(func() error {
		calls++
		if calls%2 == 0 {
			return errors.New("boom")
		}
		return nil
	}, 6, zerolog.Nop())

	assert.Equal(t, 6, calls)
	assert.Len(t, times, 3)
}

func TestSummarize(t *testing.T) {
	times := []time.Duration{
		30 * time.Millisecond,
		10 * time.Millisecond,
		20 * time.Millisecond,
	}
	s := Summarize(times)

	assert.Equal(t, 3, s.Runs)
	assert.Equal(t, 20*time.Millisecond, s.Mean)
	assert.Equal(t, 20*time.Millisecond, s.Median)
	assert.Equal(t, 10*time.Millisecond, s.Min)
	assert.Equal(t, 30*time.Millisecond, s.Max)
	assert.Equal(t, 10*time.Millisecond, s.Stdev)
}

func TestSummarizeEvenCountMedian(t *testing.T) {
	times := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
		40 * time.Millisecond,
	}
	assert.Equal(t, 25*time.Millisecond, Summarize(times).Median)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, Stats{}, Summarize(nil))
}

func TestPercentileNearestRank(t *testing.T) {
	values := make([]time.Duration, 0, 100)
	for i := 100; i >= 1; i-- {
		values = append(values, time.Duration(i)*time.Millisecond)
	}

	assert.Equal(t, 51*time.Millisecond, Percentile(values, 50))
	assert.Equal(t, 95*time.Millisecond, Percentile(values, 95))
	assert.Equal(t, 99*time.Millisecond, Percentile(values, 99))
	assert.Equal(t, 1*time.Millisecond, Percentile(values, 0))
	assert.Equal(t, 100*time.Millisecond, Percentile(values, 100))
	assert.Equal(t, time.Duration(0), Percentile(nil, 50))
}

func TestPercentileMidpointRoundsToEven(t *testing.T) {
	// p50 over two samples has rank 0.5; the even index is 0.
	values := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	assert.Equal(t, 10*time.Millisecond, Percentile(values, 50))
}

func TestRunConcurrentCollectsAllLatencies(t *testing.T) {
	res := RunConcurrent(func() error {
		time.Sleep(time.Millisecond)
		return nil
	}, 4, 3, zerolog.Nop())

	assert.Len(t, res.RoundMeans, 3)
	assert.Len(t, res.Latencies, 12)
	for _, l := range res.Latencies {
		assert.GreaterOrEqual(t, l, time.Millisecond)
	}
}

func TestRunConcurrentExcludesFailures(t *testing.T) {
	res := RunConcurrent(func() error {
		return errors.New("down")
	}, 4, 2, zerolog.Nop())

	assert.Empty(t, res.Latencies)
	assert.Empty(t, res.RoundMeans)
}

func TestPrintStatsRendersTable(t *testing.T) {
	var out strings.Builder
	rows := map[string]Stats{
		"sync":  Summarize([]time.Duration{10 * time.Millisecond}),
		"empty": {},
	}
	require.NoError(t, PrintStats(&out, rows, []string{"sync", "empty", "missing"}))

	assert.Contains(t, out.String(), "sync")
	assert.Contains(t, out.String(), "0.0100s")
	assert.Contains(t, out.String(), "empty")
}

func TestWriteArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "bench_out")
	latencies := []time.Duration{
		10 * time.Millisecond,
		20 * time.Millisecond,
		30 * time.Millisecond,
	}
	require.NoError(t, WriteArtifacts(dir, latencies))

	csvData, err := os.ReadFile(filepath.Join(dir, "per_task_latencies.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(csvData)), "\n")
	assert.Equal(t, "latency_s", lines[0])
	assert.Len(t, lines, 4)

	jsonData, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	require.NoError(t, err)
	var summary percentileSummary
	require.NoError(t, sonic.Unmarshal(jsonData, &summary))
	assert.Equal(t, 3, summary.Count)
	assert.InDelta(t, 0.02, summary.P50, 1e-9)
}
