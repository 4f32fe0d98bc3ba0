// Package cmd wires the hybridchat subcommands.
package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"hybridchat/src"
	"hybridchat/src/cache"
	"hybridchat/src/embed"
	"hybridchat/src/graph"
	"hybridchat/src/logger"
	"hybridchat/src/runner"
)

var (
	cfg      *src.Config
	confFile string
)

var rootCmd = &cobra.Command{
	Use:   "hybridchat",
	Short: "Hybrid vector+graph travel assistant",
	Long: `hybridchat answers travel questions by combining Pinecone semantic
search with graph context from an embedded store, keeping all store
connections confined to a background execution context.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Missing .env is fine, the environment may already be set.
		_ = godotenv.Load()

		var err error
		cfg, err = src.LoadConfig()
		if err != nil {
			return err
		}
		if err := src.ApplyYAML(confFile, cfg); err != nil {
			return err
		}
		return logger.InitLogger(cfg.Log)
	},
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&confFile, "config", "config.yaml", "Path to the YAML config overlay")
}

// newEmbedClient builds the embedding client with its two-tier cache.
func newEmbedClient(ctx context.Context) (*embed.Client, error) {
	log := logger.Logger

	fileCache, err := cache.NewFile(cfg.Cache.Dir, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open file cache: %w", err)
	}

	var primary cache.Cache
	if cfg.Cache.RedisURL != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.Cache.RedisURL, cfg.Cache.TTL)
		if err != nil {
			log.Warn().Err(err).Msg("Redis cache unavailable, falling back to file cache only")
		} else {
			primary = redisCache
		}
	}

	return embed.NewClient(cfg.Embed, cache.NewTiered(primary, fileCache, log), log)
}

// newGraphRunner starts the background execution context that owns graph
// store connections. The returned stop function drains it.
func newGraphRunner(log zerolog.Logger) (*graph.Fetcher, func()) {
	reg := runner.NewRegistry(graph.NewConnector(cfg.Graph), log)
	r := runner.New(reg, runner.Options{
		QueueSize:   cfg.Runner.QueueSize,
		GracePeriod: cfg.Runner.GracePeriod,
		Logger:      log,
	})
	r.Start()

	stop := func() {
		if err := r.Stop(cfg.Runner.StopTimeout); err != nil {
			log.Warn().Err(err).Msg("Graph runner did not stop cleanly")
		}
	}
	return &graph.Fetcher{Runner: r, Timeout: cfg.Runner.FetchTimeout}, stop
}
