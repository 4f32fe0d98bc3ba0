// Package vector talks to the Pinecone index over its REST data plane.
package vector

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"hybridchat/src/model"
)

// controlPlaneURL is the Pinecone management API base.
const controlPlaneURL = "https://api.pinecone.io"

// Client queries and upserts vectors on one Pinecone index.
type Client struct {
	cfg        model.PineconeConfig
	httpc      *http.Client
	controlURL string
}

// NewClient validates cfg and builds a client.
func NewClient(cfg model.PineconeConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("PINECONE_API_KEY is required")
	}
	if cfg.IndexHost == "" {
		return nil, fmt.Errorf("PINECONE_INDEX_HOST is required")
	}
	return &Client{
		cfg:        cfg,
		httpc:      &http.Client{Timeout: 30 * time.Second},
		controlURL: controlPlaneURL,
	}, nil
}

// Vector is one upsert payload entry.
type Vector struct {
	ID       string         `json:"id"`
	Values   []float64      `json:"values"`
	Metadata model.NodeMeta `json:"metadata"`
}

type queryRequest struct {
	Vector          []float64 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
	IncludeValues   bool      `json:"includeValues"`
}

type queryResponse struct {
	Matches []model.VectorMatch `json:"matches"`
}

// Query returns the topK nearest matches for the given embedding.
func (c *Client) Query(ctx context.Context, vec []float64, topK int) ([]model.VectorMatch, error) {
	if topK <= 0 {
		topK = c.cfg.TopK
	}
	var resp queryResponse
	err := c.post(ctx, "/query", queryRequest{
		Vector:          vec,
		TopK:            topK,
		IncludeMetadata: true,
		IncludeValues:   false,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

type indexList struct {
	Indexes []struct {
		Name string `json:"name"`
	} `json:"indexes"`
}

// EnsureIndex creates the configured serverless index when it does not
// exist yet. Existing indexes are left untouched.
func (c *Client) EnsureIndex(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.controlURL+"/indexes", nil)
	if err != nil {
		return fmt.Errorf("failed to build pinecone request: %w", err)
	}
	req.Header.Set("Api-Key", c.cfg.APIKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("pinecone returned %d: %s", resp.StatusCode, msg)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read pinecone response: %w", err)
	}
	var list indexList
	if err := sonic.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("failed to decode pinecone response: %w", err)
	}
	for _, idx := range list.Indexes {
		if idx.Name == c.cfg.IndexName {
			return nil
		}
	}

	create := map[string]any{
		"name":      c.cfg.IndexName,
		"dimension": c.cfg.Dimension,
		"metric":    "cosine",
		"spec": map[string]any{
			"serverless": map[string]string{"cloud": "aws", "region": "us-east-1"},
		},
	}
	body, err := sonic.Marshal(create)
	if err != nil {
		return fmt.Errorf("failed to marshal pinecone request: %w", err)
	}
	req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.controlURL+"/indexes", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build pinecone request: %w", err)
	}
	req.Header.Set("Api-Key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	createResp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone request failed: %w", err)
	}
	defer createResp.Body.Close()

	if createResp.StatusCode != http.StatusCreated && createResp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(createResp.Body, 2048))
		return fmt.Errorf("failed to create index %s: %d: %s", c.cfg.IndexName, createResp.StatusCode, msg)
	}
	return nil
}

// Upsert writes a batch of vectors to the index.
func (c *Client) Upsert(ctx context.Context, vectors []Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	return c.post(ctx, "/vectors/upsert", map[string]any{"vectors": vectors}, nil)
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := sonic.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal pinecone request: %w", err)
	}

	host := c.cfg.IndexHost
	if !strings.HasPrefix(host, "http") {
		host = "https://" + host
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, host+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build pinecone request: %w", err)
	}
	req.Header.Set("Api-Key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("pinecone returned %d: %s", resp.StatusCode, msg)
	}

	if out != nil {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read pinecone response: %w", err)
		}
		if err := sonic.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode pinecone response: %w", err)
		}
	}
	return nil
}
