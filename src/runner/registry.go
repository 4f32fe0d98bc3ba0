package runner

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Connector opens connections to the external graph store. A connection
// returned by Connect is owned by exactly one execution context and must
// never be used from another.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// Conn is one open connection to the graph store.
type Conn interface {
	Close(ctx context.Context) error
}

// Handle binds one open connection to its owning execution context.
type Handle struct {
	owner ContextID

	once sync.Once
	conn Conn
	err  error
}

// Owner returns the identity of the context the handle belongs to.
func (h *Handle) Owner() ContextID {
	return h.owner
}

// Conn returns the underlying connection.
func (h *Handle) Conn() Conn {
	return h.conn
}

func (h *Handle) close(ctx context.Context) error {
	if h.conn == nil {
		return nil
	}
	return h.conn.Close(ctx)
}

// Registry maps execution-context identity to its owned connection handle.
// Handles are created lazily, exactly one per context, and closed only from
// code running on their owning context.
type Registry struct {
	connector Connector
	log       zerolog.Logger

	mu      sync.Mutex
	handles map[ContextID]*Handle
	runners map[ContextID]*Runner
}

// NewRegistry creates an empty registry over the given connector.
func NewRegistry(connector Connector, log zerolog.Logger) *Registry {
	return &Registry{
		connector: connector,
		log:       log,
		handles:   make(map[ContextID]*Handle),
		runners:   make(map[ContextID]*Runner),
	}
}

func (reg *Registry) attach(id ContextID, r *Runner) {
	reg.mu.Lock()
	reg.runners[id] = r
	reg.mu.Unlock()
}

func (reg *Registry) detach(id ContextID) {
	reg.mu.Lock()
	delete(reg.runners, id)
	reg.mu.Unlock()
}

// GetOrCreate returns the open handle for the calling context, connecting
// lazily on first use. The lookup/insert step never blocks on I/O; only the
// first caller per context pays for the connect, and concurrent callers from
// the same context all observe that one handle.
func (reg *Registry) GetOrCreate(ctx context.Context, ec *ExecContext) (*Handle, error) {
	reg.mu.Lock()
	h, ok := reg.handles[ec.ID()]
	if !ok {
		h = &Handle{owner: ec.ID()}
		reg.handles[ec.ID()] = h
	}
	reg.mu.Unlock()

	h.once.Do(func() {
		h.conn, h.err = reg.connector.Connect(ctx)
		if h.err == nil {
			reg.log.Debug().Str("context_id", string(ec.ID())).Msg("graph store handle created")
		}
	})
	if h.err != nil {
		// Failed handles are evicted so a later call can retry.
		reg.mu.Lock()
		if reg.handles[ec.ID()] == h {
			delete(reg.handles, ec.ID())
		}
		reg.mu.Unlock()
		return nil, fmt.Errorf("connect graph store: %w", h.err)
	}
	return h, nil
}

// Close closes and removes the handle registered under id. It must run on
// the owning context: a caller from any other context gets WrongContextError.
// Closing an absent entry is a no-op.
func (reg *Registry) Close(ctx context.Context, ec *ExecContext, id ContextID) error {
	if ec.ID() != id {
		return &WrongContextError{Caller: ec.ID(), Owner: id}
	}

	reg.mu.Lock()
	h, ok := reg.handles[id]
	delete(reg.handles, id)
	reg.mu.Unlock()

	if !ok {
		return nil
	}
	if err := h.close(ctx); err != nil {
		return fmt.Errorf("close graph store handle: %w", err)
	}
	reg.log.Debug().Str("context_id", string(id)).Msg("graph store handle closed")
	return nil
}

// CloseAll closes every registered handle, dispatching each close to run on
// its owning context. A handle owned by the calling context (when ec is not
// nil) is closed inline; a handle whose context no longer has an attached
// runner is closed directly as a last resort, with a log line, so shutdown
// never leaks connections.
func (reg *Registry) CloseAll(ctx context.Context, ec *ExecContext) error {
	reg.mu.Lock()
	owners := make([]ContextID, 0, len(reg.handles))
	for id := range reg.handles {
		owners = append(owners, id)
	}
	reg.mu.Unlock()

	var firstErr error
	for _, id := range owners {
		err := reg.closeOn(ctx, ec, id)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (reg *Registry) closeOn(ctx context.Context, ec *ExecContext, id ContextID) error {
	if ec != nil && ec.ID() == id {
		return reg.Close(ctx, ec, id)
	}

	reg.mu.Lock()
	owner := reg.runners[id]
	reg.mu.Unlock()

	if owner == nil {
		// Owning context is gone; close off-context rather than leak.
		reg.mu.Lock()
		h, ok := reg.handles[id]
		delete(reg.handles, id)
		reg.mu.Unlock()
		if !ok {
			return nil
		}
		reg.log.Warn().Str("context_id", string(id)).Msg("owning context gone, closing handle directly")
		return h.close(ctx)
	}

	_, err := owner.SubmitAndWait(func(ctx context.Context, ownerEC *ExecContext) (any, error) {
		return nil, reg.Close(ctx, ownerEC, id)
	}, 0)
	return err
}

// Len reports the number of registered handles.
func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.handles)
}
