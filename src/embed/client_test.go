package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"hybridchat/src/cache"
	"hybridchat/src/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func fakeEmbedServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := map[string]any{"data": []map[string]any{}}
		data := make([]map[string]any, len(req.Input))
		for i := range req.Input {
			data[i] = map[string]any{"embedding": []float64{float64(i), 0.5}}
		}
		resp["data"] = data
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestClient(t *testing.T, baseURL string, c cache.Cache) *Client {
	t.Helper()
	client, err := NewClient(model.EmbedConfig{
		APIKey:      "test-key",
		BaseURL:     baseURL,
		Model:       "text-embedding-3-small",
		Concurrency: 2,
		BatchSize:   2,
	}, c, zerolog.Nop())
	require.NoError(t, err)
	return client
}

func TestEmbedText(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbedServer(t, &calls)
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	got, err := client.EmbedText(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, []float64{0, 0.5}, got)
	require.EqualValues(t, 1, calls.Load())
}

func TestEmbedTextServesSecondCallFromCache(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbedServer(t, &calls)
	defer srv.Close()

	fileCache, err := cache.NewFile(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	client := newTestClient(t, srv.URL, fileCache)

	first, err := client.EmbedText(context.Background(), "hello")
	require.NoError(t, err)
	second, err := client.EmbedText(context.Background(), "hello")
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.EqualValues(t, 1, calls.Load(), "second call should not hit the API")
}

func TestEmbedTextsBatchesAndFillsFromCache(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbedServer(t, &calls)
	defer srv.Close()

	fileCache, err := cache.NewFile(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	client := newTestClient(t, srv.URL, fileCache)
	ctx := context.Background()

	// Warm one entry.
	_, err = client.EmbedText(ctx, "a")
	require.NoError(t, err)
	calls.Store(0)

	results, err := client.EmbedTexts(ctx, []string{"a", "b", "c", "d", "e"})
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i, r := range results {
		require.NotEmptyf(t, r, "result %d is empty", i)
	}

	// 4 uncached texts at batch size 2 means exactly two API calls.
	require.EqualValues(t, 2, calls.Load())
}

func TestEmbedClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad model", http.StatusBadRequest)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, nil)
	_, err := client.EmbedText(context.Background(), "x")
	require.Error(t, err)
	require.EqualValues(t, 1, calls.Load(), "4xx responses must not be retried")
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(model.EmbedConfig{}, nil, zerolog.Nop())
	if err == nil {
		t.Error("expected error for missing API key")
	}
}
