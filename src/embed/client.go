// Package embed creates text embeddings through the OpenAI embeddings
// endpoint, with retried HTTP calls, a concurrency cap, and an optional
// cache in front of the API.
package embed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"hybridchat/src/cache"
	"hybridchat/src/metrics"
	"hybridchat/src/model"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Client calls the embeddings API. A nil cache disables caching.
type Client struct {
	cfg   model.EmbedConfig
	httpc *http.Client
	sem   chan struct{}
	cache cache.Cache
	log   zerolog.Logger
}

// NewClient validates cfg and builds a client.
func NewClient(cfg model.EmbedConfig, c cache.Cache, log zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	return &Client{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 60 * time.Second},
		sem:   make(chan struct{}, cfg.Concurrency),
		cache: c,
		log:   log,
	}, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// EmbedText returns the embedding for a single text, serving from cache when
// possible.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float64, error) {
	key := cache.Key(c.cfg.Model, text)
	if c.cache != nil {
		if cached, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			return cached, nil
		}
	}

	embeddings, err := c.fetch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned for text")
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, embeddings[0]); err != nil {
			c.log.Warn().Err(err).Msg("embedding cache write failed")
		}
	}
	return embeddings[0], nil
}

// EmbedTexts embeds a batch of texts. Cached entries are filled first and
// only uncached texts are sent to the API, in batches of the configured size.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	results := make([][]float64, len(texts))

	var uncachedTexts []string
	var uncachedIndices []int
	for i, text := range texts {
		if c.cache != nil {
			key := cache.Key(c.cfg.Model, text)
			if cached, ok, err := c.cache.Get(ctx, key); err == nil && ok {
				results[i] = cached
				continue
			}
		}
		uncachedTexts = append(uncachedTexts, text)
		uncachedIndices = append(uncachedIndices, i)
	}

	for start := 0; start < len(uncachedTexts); start += c.cfg.BatchSize {
		end := start + c.cfg.BatchSize
		if end > len(uncachedTexts) {
			end = len(uncachedTexts)
		}
		batch := uncachedTexts[start:end]

		embeddings, err := c.fetch(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(embeddings) != len(batch) {
			return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d embeddings", len(batch), len(embeddings))
		}

		for k, embedding := range embeddings {
			idx := uncachedIndices[start+k]
			results[idx] = embedding
			if c.cache != nil {
				key := cache.Key(c.cfg.Model, batch[k])
				if err := c.cache.Set(ctx, key, embedding); err != nil {
					c.log.Warn().Err(err).Msg("embedding cache write failed")
				}
			}
		}
	}

	return results, nil
}

// fetch performs one embeddings API call under the concurrency cap, retrying
// transient failures with exponential backoff.
func (c *Client) fetch(ctx context.Context, texts []string) ([][]float64, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.sem }()

	var embeddings [][]float64
	operation := func() error {
		var err error
		embeddings, err = c.post(ctx, texts)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		metrics.EmbedRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.EmbedRequests.WithLabelValues("ok").Inc()
	return embeddings, nil
}

func (c *Client) post(ctx context.Context, texts []string) ([][]float64, error) {
	payload, err := sonic.Marshal(embedRequest{Model: c.cfg.Model, Input: texts})
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("embeddings API returned %d: %s", resp.StatusCode, body)
		// Client errors other than rate limiting will not succeed on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	var parsed embedResponse
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embeddings response: %w", err)
	}
	if err := sonic.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embeddings response: %w", err)
	}

	embeddings := make([][]float64, 0, len(parsed.Data))
	for _, d := range parsed.Data {
		embeddings = append(embeddings, d.Embedding)
	}
	return embeddings, nil
}
