package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hybridchat/src/bench"
	"hybridchat/src/graph"
	"hybridchat/src/logger"
)

var (
	benchIterations  int
	benchConcurrency int
	benchRounds      int
	benchNodeIDs     string
	benchOutDir      string
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark graph context fetches",
	Long: `bench compares direct store fetches against fetches submitted through
the background runner, then measures the runner path under concurrent
load. With --out it also writes per-task latencies (CSV) and a
percentile summary (JSON).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logger.Logger

		nodeIDs := strings.Split(benchNodeIDs, ",")
		for i := range nodeIDs {
			nodeIDs[i] = strings.TrimSpace(nodeIDs[i])
		}

		store, err := graph.Open(cfg.Graph.Path, cfg.Graph.PoolSize)
		if err != nil {
			return err
		}
		defer store.Close()

		fetcher, stop := newGraphRunner(log)
		defer stop()

		directFetch := func() error {
			_, err := store.FetchContext(ctx, nodeIDs)
			return err
		}
		runnerFetch := func() error {
			_, err := fetcher.FetchContext(nodeIDs)
			return err
		}

		log.Info().Strs("node_ids", nodeIDs).Int("iterations", benchIterations).Msg("Running warmups")
		if err := directFetch(); err != nil {
			log.Warn().Err(err).Msg("Direct warmup failed")
		}
		if err := runnerFetch(); err != nil {
			log.Warn().Err(err).Msg("Runner warmup failed")
		}

		log.Info().Msg("Timing direct fetches")
		directTimes := bench.TimeFunc(directFetch, benchIterations, log)

		log.Info().Msg("Timing runner-submitted fetches")
		runnerTimes := bench.TimeFunc(runnerFetch, benchIterations, log)

		log.Info().Int("concurrency", benchConcurrency).Int("rounds", benchRounds).Msg("Running concurrent benchmark")
		concurrent := bench.RunConcurrent(runnerFetch, benchConcurrency, benchRounds, log)

		rows := map[string]bench.Stats{
			"direct fetch":         bench.Summarize(directTimes),
			"runner fetch":         bench.Summarize(runnerTimes),
			"concurrent round avg": bench.Summarize(concurrent.RoundMeans),
		}
		order := []string{"direct fetch", "runner fetch", "concurrent round avg"}
		if err := bench.PrintStats(os.Stdout, rows, order); err != nil {
			return err
		}
		if err := bench.PrintPercentiles(os.Stdout, concurrent.Latencies); err != nil {
			return err
		}

		if benchOutDir != "" {
			if err := bench.WriteArtifacts(benchOutDir, concurrent.Latencies); err != nil {
				return err
			}
			log.Info().Str("dir", benchOutDir).Msg("Wrote benchmark artifacts")
		}
		return nil
	},
}

func init() {
	benchCmd.Flags().IntVar(&benchIterations, "iterations", 5, "Sequential iterations per method")
	benchCmd.Flags().IntVar(&benchConcurrency, "concurrency", 10, "Parallel fetches per round")
	benchCmd.Flags().IntVar(&benchRounds, "rounds", 20, "Concurrent rounds")
	benchCmd.Flags().StringVar(&benchNodeIDs, "node-ids", "city_hanoi,city_hue,city_da_nang", "Comma-separated node ids to fetch")
	benchCmd.Flags().StringVar(&benchOutDir, "out", "", "Directory for CSV/JSON artifacts")
	rootCmd.AddCommand(benchCmd)
}
