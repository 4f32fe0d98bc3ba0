package bench

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/olekukonko/tablewriter"
)

// PrintStats renders named timing summaries as a table.
func PrintStats(w io.Writer, rows map[string]Stats, order []string) error {
	table := tablewriter.NewTable(w)
	table.Header("benchmark", "runs", "mean", "median", "stdev", "min", "max")

	for _, name := range order {
		s, ok := rows[name]
		if !ok {
			continue
		}
		if s.Runs == 0 {
			table.Append(name, "0", "-", "-", "-", "-", "-")
			continue
		}
		table.Append(
			name,
			fmt.Sprintf("%d", s.Runs),
			formatSeconds(s.Mean),
			formatSeconds(s.Median),
			formatSeconds(s.Stdev),
			formatSeconds(s.Min),
			formatSeconds(s.Max),
		)
	}
	return table.Render()
}

// PrintPercentiles renders the per-task latency distribution.
func PrintPercentiles(w io.Writer, latencies []time.Duration) error {
	table := tablewriter.NewTable(w)
	table.Header("count", "p50", "p95", "p99")
	table.Append(
		fmt.Sprintf("%d", len(latencies)),
		formatSeconds(Percentile(latencies, 50)),
		formatSeconds(Percentile(latencies, 95)),
		formatSeconds(Percentile(latencies, 99)),
	)
	return table.Render()
}

type percentileSummary struct {
	Count int     `json:"count"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}

// WriteArtifacts saves the raw per-task latencies as CSV and a JSON
// percentile summary into dir.
func WriteArtifacts(dir string, latencies []time.Duration) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	csvPath := filepath.Join(dir, "per_task_latencies.csv")
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", csvPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"latency_s"}); err != nil {
		return err
	}
	for _, l := range latencies {
		if err := w.Write([]string{fmt.Sprintf("%.6f", l.Seconds())}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write latency csv: %w", err)
	}

	summary := percentileSummary{
		Count: len(latencies),
		P50:   Percentile(latencies, 50).Seconds(),
		P95:   Percentile(latencies, 95).Seconds(),
		P99:   Percentile(latencies, 99).Seconds(),
	}
	data, err := sonic.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	jsonPath := filepath.Join(dir, "summary.json")
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", jsonPath, err)
	}
	return nil
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.4fs", d.Seconds())
}
