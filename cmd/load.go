package cmd

import (
	"github.com/spf13/cobra"

	"hybridchat/src/graph"
	"hybridchat/src/logger"
)

var loadDataset string

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the travel dataset into the graph store",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Logger

		store, err := graph.Open(cfg.Graph.Path, cfg.Graph.PoolSize)
		if err != nil {
			return err
		}
		defer store.Close()

		return graph.LoadDataset(cmd.Context(), store, loadDataset, log)
	},
}

func init() {
	loadCmd.Flags().StringVar(&loadDataset, "dataset", "data/vietnam_travel_dataset.json", "Path to the dataset JSON file")
	rootCmd.AddCommand(loadCmd)
}
