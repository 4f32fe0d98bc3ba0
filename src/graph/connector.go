package graph

import (
	"context"
	"fmt"
	"time"

	"hybridchat/src/metrics"
	"hybridchat/src/model"
	"hybridchat/src/runner"
)

// Connector opens per-context store connections for the runner registry.
// Every execution context gets its own pool; connections are never shared
// across contexts.
type Connector struct {
	cfg model.GraphConfig
}

// NewConnector builds a connector for the configured store path.
func NewConnector(cfg model.GraphConfig) *Connector {
	return &Connector{cfg: cfg}
}

func (c *Connector) Connect(ctx context.Context) (runner.Conn, error) {
	store, err := Open(c.cfg.Path, c.cfg.PoolSize)
	if err != nil {
		return nil, err
	}
	if err := store.Ping(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to ping graph store: %w", err)
	}
	return &storeConn{store: store}, nil
}

type storeConn struct {
	store *Store
}

func (sc *storeConn) Close(ctx context.Context) error {
	return sc.store.Close()
}

// StoreFromHandle unwraps the store behind a registry handle.
func StoreFromHandle(h *runner.Handle) (*Store, error) {
	sc, ok := h.Conn().(*storeConn)
	if !ok {
		return nil, fmt.Errorf("handle does not hold a graph store connection")
	}
	return sc.store, nil
}

// Fetcher gives synchronous callers graph context through the background
// runner, so the store connection stays confined to the runner's context.
type Fetcher struct {
	Runner  *runner.Runner
	Timeout time.Duration
}

// FetchContext submits the fetch onto the runner and blocks for the result.
func (f *Fetcher) FetchContext(nodeIDs []string) ([]model.GraphFact, error) {
	start := time.Now()
	v, err := f.Runner.SubmitAndWait(func(ctx context.Context, ec *runner.ExecContext) (any, error) {
		h, err := ec.Registry().GetOrCreate(ctx, ec)
		if err != nil {
			return nil, err
		}
		store, err := StoreFromHandle(h)
		if err != nil {
			return nil, err
		}
		return store.FetchContext(ctx, nodeIDs)
	}, f.Timeout)
	if err != nil {
		return nil, err
	}
	metrics.GraphFetchDuration.Observe(time.Since(start).Seconds())
	return v.([]model.GraphFact), nil
}
