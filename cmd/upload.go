package cmd

import (
	"github.com/spf13/cobra"

	"hybridchat/src/graph"
	"hybridchat/src/logger"
	"hybridchat/src/vector"
)

var uploadDataset string

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Embed the dataset and upsert it into Pinecone",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logger.Logger

		nodes, err := graph.ReadDataset(uploadDataset)
		if err != nil {
			return err
		}

		emb, err := newEmbedClient(ctx)
		if err != nil {
			return err
		}

		vec, err := vector.NewClient(cfg.Pinecone)
		if err != nil {
			return err
		}
		if err := vec.EnsureIndex(ctx); err != nil {
			return err
		}

		uploader := &vector.Uploader{Client: vec, Embed: emb, Log: log}
		uploaded, err := uploader.Upload(ctx, nodes)
		if err != nil {
			return err
		}

		log.Info().Int("uploaded", uploaded).Str("index", cfg.Pinecone.IndexName).Msg("Upload complete")
		return nil
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadDataset, "dataset", "data/vietnam_travel_dataset.json", "Path to the dataset JSON file")
	rootCmd.AddCommand(uploadCmd)
}
