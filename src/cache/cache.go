// Package cache stores embeddings keyed by a stable content hash. Two tiers
// are provided: a remote Redis tier with TTL and a local file tier used as
// fallback when the remote one is unavailable.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Cache is one embedding cache tier.
type Cache interface {
	// Get returns the cached embedding and whether it was present.
	Get(ctx context.Context, key string) ([]float64, bool, error)
	// Set stores an embedding under key.
	Set(ctx context.Context, key string, embedding []float64) error
	Close() error
}

// Key returns the stable cache key for a text under a given embedding model.
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(model + ":" + text))
	return hex.EncodeToString(sum[:])
}
