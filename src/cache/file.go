package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"
)

// File is the local cache tier: one JSON file per key. Writes go through a
// temp file and an atomic rename so readers never see a torn entry.
type File struct {
	dir string
	log zerolog.Logger
}

// NewFile creates the cache directory if needed.
func NewFile(dir string, log zerolog.Logger) (*File, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &File{dir: dir, log: log}, nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *File) Get(ctx context.Context, key string) ([]float64, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache file: %w", err)
	}

	var embedding []float64
	if err := sonic.Unmarshal(data, &embedding); err != nil {
		// A corrupt entry is treated as a miss so it gets rewritten.
		f.log.Warn().Err(err).Str("key", key).Msg("corrupt cache file, treating as miss")
		return nil, false, nil
	}
	return embedding, true, nil
}

func (f *File) Set(ctx context.Context, key string, embedding []float64) error {
	data, err := sonic.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	target := f.path(key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

func (f *File) Close() error {
	return nil
}
