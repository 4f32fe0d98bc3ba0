package cache

import (
	"context"

	"hybridchat/src/metrics"

	"github.com/rs/zerolog"
)

// Tiered reads from the primary tier first and falls back to the secondary
// on miss or failure, logging which tier served. Writes always land in the
// fallback; the primary write is best-effort so a flaky remote never blocks
// the caller.
type Tiered struct {
	primary  Cache
	fallback Cache
	log      zerolog.Logger
}

// NewTiered builds a two-tier cache. primary may be nil, in which case only
// the fallback tier is used.
func NewTiered(primary, fallback Cache, log zerolog.Logger) *Tiered {
	return &Tiered{primary: primary, fallback: fallback, log: log}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]float64, bool, error) {
	if t.primary != nil {
		embedding, ok, err := t.primary.Get(ctx, key)
		if err != nil {
			t.log.Warn().Err(err).Str("key", key).Msg("primary cache read failed, falling back")
		} else if ok {
			metrics.CacheHits.WithLabelValues("remote").Inc()
			t.log.Debug().Str("key", key).Str("tier", "remote").Msg("cache hit")
			return embedding, true, nil
		}
	}

	embedding, ok, err := t.fallback.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if ok {
		metrics.CacheHits.WithLabelValues("file").Inc()
		t.log.Debug().Str("key", key).Str("tier", "file").Msg("cache hit")
		return embedding, true, nil
	}

	metrics.CacheMisses.Inc()
	return nil, false, nil
}

func (t *Tiered) Set(ctx context.Context, key string, embedding []float64) error {
	if err := t.fallback.Set(ctx, key, embedding); err != nil {
		return err
	}
	if t.primary != nil {
		if err := t.primary.Set(ctx, key, embedding); err != nil {
			t.log.Warn().Err(err).Str("key", key).Msg("primary cache write failed")
		}
	}
	return nil
}

func (t *Tiered) Close() error {
	var firstErr error
	if t.primary != nil {
		firstErr = t.primary.Close()
	}
	if err := t.fallback.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
