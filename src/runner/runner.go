// Package runner hosts asynchronous work on dedicated background goroutines
// so synchronous callers never touch a graph-store connection themselves.
//
// Each Runner is one execution context: a single dispatch goroutine that
// starts submitted work items in FIFO submission order. Connections are bound
// to the context that created them through the Registry, which is what keeps
// a handle from ever being reused across contexts.
package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ContextID is the opaque, stable identity of one execution context. IDs are
// minted fresh on every Start so a token is never reused while resources may
// still be registered under an older incarnation.
type ContextID string

// State is the lifecycle state of a Runner.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Work is one unit of asynchronous work. The context is cancelled when the
// runner force-cancels outstanding items during shutdown; work that blocks
// must honor it. The ExecContext identifies the hosting execution context and
// is the only way to reach the registry.
type Work func(ctx context.Context, ec *ExecContext) (any, error)

type submitResult struct {
	value any
	err   error
}

type workItem struct {
	work   Work
	result chan submitResult // nil for fire-and-forget
}

// Options tunes a Runner. Zero values fall back to defaults.
type Options struct {
	QueueSize   int           // submission queue depth, default 256
	GracePeriod time.Duration // wait after force-cancel, default 2s
	Logger      zerolog.Logger
}

// Runner is a background execution context: one dispatch goroutine pulling
// work items off a FIFO queue and starting each as its own task. Completion
// order is unconstrained.
type Runner struct {
	registry *Registry
	opts     Options

	// submitMu serializes state transitions against submissions so a
	// submission never races the queue being closed.
	submitMu sync.RWMutex
	state    atomic.Int32
	id       ContextID

	queue      chan workItem
	baseCtx    context.Context
	cancelWork context.CancelFunc
	wg         sync.WaitGroup
	launched   chan struct{} // closed once the dispatcher has launched every queued item
	drained    chan struct{} // closed by Stop once in-flight work is resolved
	done       chan struct{} // closed when the dispatch goroutine exits

	startSeq atomic.Uint64
}

// New creates a stopped Runner bound to reg.
func New(reg *Registry, opts Options) *Runner {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = 2 * time.Second
	}
	return &Runner{
		registry: reg,
		opts:     opts,
		id:       ContextID(uuid.NewString()),
	}
}

// ID returns the identity of the current context incarnation.
func (r *Runner) ID() ContextID {
	r.submitMu.RLock()
	defer r.submitMu.RUnlock()
	return r.id
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Registry returns the registry this runner's contexts register with.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Start launches the dispatch goroutine. It is idempotent; calling Start on a
// running runner is a no-op. Restarting a stopped runner mints a fresh
// context identity.
func (r *Runner) Start() {
	r.submitMu.Lock()
	defer r.submitMu.Unlock()

	if State(r.state.Load()) != StateStopped {
		return
	}
	r.state.Store(int32(StateStarting))

	r.id = ContextID(uuid.NewString())
	r.queue = make(chan workItem, r.opts.QueueSize)
	r.baseCtx, r.cancelWork = context.WithCancel(context.Background())
	r.launched = make(chan struct{})
	r.drained = make(chan struct{})
	r.done = make(chan struct{})
	r.startSeq.Store(0)
	r.registry.attach(r.id, r)

	go r.dispatch(r.id, r.queue, r.baseCtx, r.launched, r.drained, r.done)

	r.state.Store(int32(StateRunning))
	r.opts.Logger.Debug().Str("context_id", string(r.id)).Msg("runner started")
}

// Stop drains in-flight work up to timeout, force-cancels whatever remains,
// closes the registered handles from the dispatch goroutine, and joins it. Stopping an already stopped runner is a no-op. Returns
// ErrShutdownTimeout when the dispatch goroutine does not join within the
// grace period after forced cancellation.
func (r *Runner) Stop(timeout time.Duration) error {
	r.submitMu.Lock()
	if State(r.state.Load()) != StateRunning {
		r.submitMu.Unlock()
		return nil
	}
	r.state.Store(int32(StateStopping))
	// No submitter can hold the read lock here, and none passes the state
	// check after this point, so closing the queue is safe.
	close(r.queue)
	id := r.id
	r.submitMu.Unlock()

	// The WaitGroup only covers items the dispatcher has already launched,
	// so the drain must first wait for the launch loop to finish or it can
	// observe a zero counter while submissions are still queued.
	deadline := time.Now().Add(timeout)
	drainedOK := waitChan(r.launched, timeout) && waitTimeout(&r.wg, time.Until(deadline))

	var stallErr error
	if !drainedOK {
		r.opts.Logger.Warn().Str("context_id", string(id)).Msg("runner stop timed out, force-cancelling work")
		r.cancelWork()
		graceDeadline := time.Now().Add(r.opts.GracePeriod)
		if !waitChan(r.launched, r.opts.GracePeriod) || !waitTimeout(&r.wg, time.Until(graceDeadline)) {
			stallErr = ErrShutdownTimeout
		}
	}
	close(r.drained)

	if stallErr == nil {
		select {
		case <-r.done:
		case <-time.After(r.opts.GracePeriod):
			stallErr = ErrShutdownTimeout
		}
	}

	r.registry.detach(id)
	r.cancelWork()
	r.state.Store(int32(StateStopped))
	r.opts.Logger.Debug().Str("context_id", string(id)).Err(stallErr).Msg("runner stopped")
	return stallErr
}

// SubmitSync enqueues work without waiting for it. Errors raised by the work
// item are logged, not propagated.
func (r *Runner) SubmitSync(work Work) error {
	return r.enqueue(workItem{work: work})
}

// SubmitAndWait enqueues work and blocks until it completes or timeout
// elapses. A timeout of zero or less waits forever. On timeout the work item
// keeps running; cancellation must be arranged by the work itself.
func (r *Runner) SubmitAndWait(work Work, timeout time.Duration) (any, error) {
	item := workItem{work: work, result: make(chan submitResult, 1)}
	if err := r.enqueue(item); err != nil {
		return nil, err
	}

	if timeout <= 0 {
		res := <-item.result
		return res.value, wrapWorkErr(res.err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case res := <-item.result:
		return res.value, wrapWorkErr(res.err)
	case <-timer.C:
		return nil, ErrSubmissionTimeout
	}
}

func wrapWorkErr(err error) error {
	if err == nil {
		return nil
	}
	return &SubmissionError{Err: err}
}

func (r *Runner) enqueue(item workItem) error {
	r.submitMu.RLock()
	defer r.submitMu.RUnlock()
	if State(r.state.Load()) != StateRunning {
		return ErrNotRunning
	}
	// The dispatch goroutine keeps draining while running, so a full queue
	// only means back-pressure, never deadlock.
	r.queue <- item
	return nil
}

// dispatch is the execution context itself. Every mutation of registry state
// for this context happens from work started here.
func (r *Runner) dispatch(id ContextID, queue chan workItem, baseCtx context.Context, launched, drained, done chan struct{}) {
	defer close(done)

	for item := range queue {
		seq := r.startSeq.Add(1)
		ec := &ExecContext{id: id, registry: r.registry, startSeq: seq}
		r.wg.Add(1)
		go r.run(baseCtx, ec, item)
	}
	close(launched)

	// Queue closed: Stop resolves in-flight work, then every registered
	// handle is closed from here. This context's handle closes inline;
	// handles owned by other live contexts are dispatched to them.
	<-drained
	ec := &ExecContext{id: id, registry: r.registry}
	if err := r.registry.CloseAll(context.Background(), ec); err != nil {
		r.opts.Logger.Error().Err(err).Str("context_id", string(id)).Msg("closing handles at shutdown")
	}
}

func (r *Runner) run(ctx context.Context, ec *ExecContext, item workItem) {
	defer r.wg.Done()

	value, err := r.invoke(ctx, ec, item.work)
	if item.result != nil {
		item.result <- submitResult{value: value, err: err}
		return
	}
	if err != nil {
		r.opts.Logger.Error().Err(err).Str("context_id", string(ec.ID())).Msg("background work failed")
	}
}

func (r *Runner) invoke(ctx context.Context, ec *ExecContext, work Work) (value any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("work item panicked: %v", rec)
		}
	}()
	return work(ctx, ec)
}

func waitChan(ch <-chan struct{}, d time.Duration) bool {
	select {
	case <-ch:
		return true
	case <-time.After(d):
		return false
	}
}

func waitTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

// ExecContext identifies the execution context hosting a work item. It is
// only ever handed to work items, which is what confines registry access to
// code running in-context.
type ExecContext struct {
	id       ContextID
	registry *Registry
	startSeq uint64
}

// ID returns the hosting context's identity.
func (ec *ExecContext) ID() ContextID {
	return ec.id
}

// Registry returns the shared resource registry.
func (ec *ExecContext) Registry() *Registry {
	return ec.registry
}

// StartSeq is the position of this work item in the context's dispatch order.
// Items submitted by one thread are dispatched in submission order, so their
// sequence numbers are monotonically increasing.
func (ec *ExecContext) StartSeq() uint64 {
	return ec.startSeq
}
