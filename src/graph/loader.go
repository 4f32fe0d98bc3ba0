package graph

import (
	"context"
	"fmt"
	"os"

	"hybridchat/src/model"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
)

// ReadDataset parses a travel dataset JSON file.
func ReadDataset(path string) ([]model.Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var nodes []model.Node
	if err := sonic.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	return nodes, nil
}

// LoadDataset ensures the schema and loads all dataset nodes and their
// relationships into the store. Nodes are loaded first so relationship
// endpoints resolve regardless of dataset order.
func LoadDataset(ctx context.Context, store *Store, path string, log zerolog.Logger) error {
	nodes, err := ReadDataset(path)
	if err != nil {
		return err
	}

	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}

	for _, node := range nodes {
		if err := store.UpsertNode(ctx, node); err != nil {
			return err
		}
	}
	log.Info().Int("nodes", len(nodes)).Msg("nodes loaded")

	edges := 0
	for _, node := range nodes {
		for _, rel := range node.Connections {
			if err := store.CreateRelationship(ctx, node.ID, rel); err != nil {
				return err
			}
			edges++
		}
	}
	log.Info().Int("relationships", edges).Msg("relationships loaded")

	return nil
}
