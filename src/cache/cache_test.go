package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestKeyIsStable(t *testing.T) {
	k1 := Key("text-embedding-3-small", "hello")
	k2 := Key("text-embedding-3-small", "hello")
	if k1 != k2 {
		t.Errorf("same input produced different keys: %s != %s", k1, k2)
	}

	k3 := Key("text-embedding-3-small", "world")
	if k1 == k3 {
		t.Error("different texts produced the same key")
	}

	k4 := Key("text-embedding-3-large", "hello")
	if k1 == k4 {
		t.Error("different models produced the same key")
	}
}

func TestFileCacheRoundTrip(t *testing.T) {
	f, err := NewFile(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	ctx := context.Background()

	embedding := []float64{0.1, 0.2, 0.3}
	key := Key("m", "text")
	require.NoError(t, f.Set(ctx, key, embedding))

	got, ok, err := f.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, embedding, got)
}

func TestFileCacheMiss(t *testing.T) {
	f, err := NewFile(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)

	_, ok, err := f.Get(context.Background(), Key("m", "absent"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileCacheCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir, zerolog.Nop())
	require.NoError(t, err)

	key := Key("m", "broken")
	require.NoError(t, os.WriteFile(filepath.Join(dir, key+".json"), []byte("{not json"), 0644))

	_, ok, err := f.Get(context.Background(), key)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFileCacheLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(dir, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, f.Set(context.Background(), Key("m", "a"), []float64{1}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

// flakyCache fails every operation, standing in for an unreachable remote.
type flakyCache struct{}

func (flakyCache) Get(ctx context.Context, key string) ([]float64, bool, error) {
	return nil, false, errors.New("connection refused")
}
func (flakyCache) Set(ctx context.Context, key string, embedding []float64) error {
	return errors.New("connection refused")
}
func (flakyCache) Close() error { return nil }

func TestTieredFallsBackWhenPrimaryFails(t *testing.T) {
	file, err := NewFile(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	tiered := NewTiered(flakyCache{}, file, zerolog.Nop())
	ctx := context.Background()

	embedding := []float64{1, 2}
	key := Key("m", "t")
	require.NoError(t, tiered.Set(ctx, key, embedding))

	got, ok, err := tiered.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, embedding, got)
}

func TestTieredWithoutPrimary(t *testing.T) {
	file, err := NewFile(t.TempDir(), zerolog.Nop())
	require.NoError(t, err)
	tiered := NewTiered(nil, file, zerolog.Nop())
	ctx := context.Background()

	key := Key("m", "t")
	require.NoError(t, tiered.Set(ctx, key, []float64{3}))
	got, ok, err := tiered.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float64{3}, got)

	_, ok, err = tiered.Get(ctx, Key("m", "other"))
	require.NoError(t, err)
	require.False(t, ok)
}
