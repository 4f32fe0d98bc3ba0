package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	reg := NewRegistry(&fakeConnector{}, zerolog.Nop())
	r := New(reg, Options{Logger: zerolog.Nop(), GracePeriod: 500 * time.Millisecond})
	t.Cleanup(func() { r.Stop(time.Second) })
	return r
}

func TestSubmitAndWaitReturnsResult(t *testing.T) {
	r := newTestRunner(t)
	r.Start()

	v, err := r.SubmitAndWait(func(ctx context.Context, ec *ExecContext) (any, error) {
		return 42, nil
	}, time.Second)
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestSubmitAndWaitWrapsWorkError(t *testing.T) {
	r := newTestRunner(t)
	r.Start()

	boom := errors.New("boom")
	_, err := r.SubmitAndWait(func(ctx context.Context, ec *ExecContext) (any, error) {
		return nil, boom
	}, time.Second)

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	require.ErrorIs(t, err, boom)
}

func TestSubmitAndWaitTimeoutDoesNotCancelWork(t *testing.T) {
	r := newTestRunner(t)
	r.Start()

	var completed atomic.Bool
	finished := make(chan struct{})
	_, err := r.SubmitAndWait(func(ctx context.Context, ec *ExecContext) (any, error) {
		time.Sleep(50 * time.Millisecond)
		completed.Store(true)
		close(finished)
		return nil, nil
	}, 10*time.Millisecond)
	require.ErrorIs(t, err, ErrSubmissionTimeout)

	// The work item keeps running after the caller stops waiting.
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("work item did not complete after caller timeout")
	}
	require.True(t, completed.Load())
}

func TestSubmitSyncSwallowsErrors(t *testing.T) {
	r := newTestRunner(t)
	r.Start()

	ran := make(chan struct{})
	err := r.SubmitSync(func(ctx context.Context, ec *ExecContext) (any, error) {
		close(ran)
		return nil, errors.New("logged, not propagated")
	})
	require.NoError(t, err)

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("fire-and-forget work never ran")
	}
}

func TestSubmitAndWaitRecoversPanic(t *testing.T) {
	r := newTestRunner(t)
	r.Start()

	_, err := r.SubmitAndWait(func(ctx context.Context, ec *ExecContext) (any, error) {
		panic("kaboom")
	}, time.Second)

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
}

func TestStartIsIdempotent(t *testing.T) {
	r := newTestRunner(t)
	r.Start()
	id := r.ID()
	r.Start()
	if r.ID() != id {
		t.Errorf("second Start changed context identity: %s != %s", r.ID(), id)
	}
	if r.State() != StateRunning {
		t.Errorf("expected running state, got %s", r.State())
	}
}

func TestSubmitAfterStopFailsNotRunning(t *testing.T) {
	r := newTestRunner(t)
	r.Start()
	require.NoError(t, r.Stop(time.Second))

	if err := r.SubmitSync(noop); !errors.Is(err, ErrNotRunning) {
		t.Errorf("SubmitSync after stop: want ErrNotRunning, got %v", err)
	}
	if _, err := r.SubmitAndWait(noop, time.Second); !errors.Is(err, ErrNotRunning) {
		t.Errorf("SubmitAndWait after stop: want ErrNotRunning, got %v", err)
	}
}

func TestStopBeforeStartIsNoop(t *testing.T) {
	r := newTestRunner(t)
	require.NoError(t, r.Stop(time.Second))
	if r.State() != StateStopped {
		t.Errorf("expected stopped state, got %s", r.State())
	}
}

func TestStopDrainsInFlightWork(t *testing.T) {
	r := newTestRunner(t)
	r.Start()

	var finished atomic.Int32
	for i := 0; i < 8; i++ {
		require.NoError(t, r.SubmitSync(func(ctx context.Context, ec *ExecContext) (any, error) {
			time.Sleep(20 * time.Millisecond)
			finished.Add(1)
			return nil, nil
		}))
	}

	require.NoError(t, r.Stop(2*time.Second))
	require.EqualValues(t, 8, finished.Load())
}

func TestStopImmediatelyAfterSubmitDrainsWork(t *testing.T) {
	// Stop must not observe an empty WaitGroup while the dispatcher has
	// not yet launched queued items.
	for i := 0; i < 25; i++ {
		reg := NewRegistry(&fakeConnector{}, zerolog.Nop())
		r := New(reg, Options{Logger: zerolog.Nop()})
		r.Start()

		var completed atomic.Bool
		require.NoError(t, r.SubmitSync(func(ctx context.Context, ec *ExecContext) (any, error) {
			time.Sleep(10 * time.Millisecond)
			completed.Store(true)
			return nil, nil
		}))

		require.NoError(t, r.Stop(time.Second))
		require.True(t, completed.Load(), "iteration %d: Stop returned before the submitted work item completed", i)
	}
}

func TestStopForceCancelsSlowWork(t *testing.T) {
	r := newTestRunner(t)
	r.Start()

	cancelled := make(chan struct{})
	require.NoError(t, r.SubmitSync(func(ctx context.Context, ec *ExecContext) (any, error) {
		<-ctx.Done()
		close(cancelled)
		return nil, ctx.Err()
	}))

	// The item blocks past the drain timeout; cancellation must shut it down
	// without preventing Stop from completing.
	require.NoError(t, r.Stop(50*time.Millisecond))
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("in-flight work was not force-cancelled")
	}
	require.Equal(t, StateStopped, r.State())
}

func TestStopShutdownTimeoutOnUncancellableWork(t *testing.T) {
	reg := NewRegistry(&fakeConnector{}, zerolog.Nop())
	r := New(reg, Options{Logger: zerolog.Nop(), GracePeriod: 30 * time.Millisecond})
	r.Start()

	release := make(chan struct{})
	defer close(release)
	require.NoError(t, r.SubmitSync(func(ctx context.Context, ec *ExecContext) (any, error) {
		<-release // ignores ctx on purpose
		return nil, nil
	}))

	err := r.Stop(30 * time.Millisecond)
	require.ErrorIs(t, err, ErrShutdownTimeout)
}

func TestPerThreadSubmissionOrderPreserved(t *testing.T) {
	r := newTestRunner(t)
	r.Start()

	const threads = 4
	const perThread = 25

	var mu sync.Mutex
	seqs := make(map[int][]uint64, threads)

	var wg sync.WaitGroup
	for th := 0; th < threads; th++ {
		wg.Add(1)
		go func(th int) {
			defer wg.Done()
			for i := 0; i < perThread; i++ {
				_, err := r.SubmitAndWait(func(ctx context.Context, ec *ExecContext) (any, error) {
					mu.Lock()
					seqs[th] = append(seqs[th], ec.StartSeq())
					mu.Unlock()
					return nil, nil
				}, time.Second)
				if err != nil {
					t.Error(err)
					return
				}
			}
		}(th)
	}
	wg.Wait()

	for th, order := range seqs {
		for i := 1; i < len(order); i++ {
			if order[i] <= order[i-1] {
				t.Fatalf("thread %d: start order regressed at item %d: %v", th, i, order)
			}
		}
	}
}

func TestRestartMintsFreshContextID(t *testing.T) {
	r := newTestRunner(t)
	r.Start()
	first := r.ID()
	require.NoError(t, r.Stop(time.Second))

	r.Start()
	if r.ID() == first {
		t.Error("restart reused the previous context identity")
	}
}

func noop(ctx context.Context, ec *ExecContext) (any, error) {
	return nil, nil
}
