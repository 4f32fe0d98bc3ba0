package vector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"hybridchat/src/embed"
	"hybridchat/src/model"
)

const (
	uploadBatchSize = 32
	maxEmbedChars   = 1000
	batchPause      = 200 * time.Millisecond
)

// Uploader embeds dataset nodes and upserts them into the index.
type Uploader struct {
	Client *Client
	Embed  *embed.Client
	Log    zerolog.Logger
}

// embedText picks the text to embed for a node. Nodes with a curated
// semantic_text use it verbatim; otherwise the description is truncated at
// a rune boundary so multi-byte characters are never split.
func embedText(n model.Node) string {
	if n.SemanticText != "" {
		return n.SemanticText
	}
	runes := []rune(n.Description)
	if len(runes) <= maxEmbedChars {
		return n.Description
	}
	return string(runes[:maxEmbedChars])
}

// Upload pushes every embeddable node in the dataset to Pinecone in
// batches, pausing briefly between batches to stay inside provider rate
// limits. Nodes with no text to embed are skipped.
func (u *Uploader) Upload(ctx context.Context, nodes []model.Node) (int, error) {
	embeddable := make([]model.Node, 0, len(nodes))
	for _, n := range nodes {
		if strings.TrimSpace(embedText(n)) == "" {
			continue
		}
		embeddable = append(embeddable, n)
	}
	nodes = embeddable

	uploaded := 0
	for start := 0; start < len(nodes); start += uploadBatchSize {
		end := start + uploadBatchSize
		if end > len(nodes) {
			end = len(nodes)
		}
		batch := nodes[start:end]

		texts := make([]string, 0, len(batch))
		for _, n := range batch {
			texts = append(texts, embedText(n))
		}

		embeddings, err := u.Embed.EmbedTexts(ctx, texts)
		if err != nil {
			return uploaded, fmt.Errorf("failed to embed batch at %d: %w", start, err)
		}

		vectors := make([]Vector, 0, len(batch))
		for i, n := range batch {
			city := n.City
			if city == "" {
				city = n.Region
			}
			vectors = append(vectors, Vector{
				ID:     n.ID,
				Values: embeddings[i],
				Metadata: model.NodeMeta{
					ID:   n.ID,
					Type: n.Type,
					Name: n.Name,
					City: city,
					Tags: n.Tags,
				},
			})
		}

		if err := u.Client.Upsert(ctx, vectors); err != nil {
			return uploaded, fmt.Errorf("failed to upsert batch at %d: %w", start, err)
		}
		uploaded += len(vectors)
		u.Log.Info().Int("uploaded", uploaded).Int("total", len(nodes)).Msg("Upserted vector batch")

		if end < len(nodes) {
			select {
			case <-ctx.Done():
				return uploaded, ctx.Err()
			case <-time.After(batchPause):
			}
		}
	}
	return uploaded, nil
}
