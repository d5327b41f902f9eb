package packet

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/packetflow/scope"
	"github.com/BaSui01/packetflow/types"
)

func newTestFactory(t *testing.T) (*Factory, *scope.Scope) {
	t.Helper()
	s := scope.New("camera")
	t.Cleanup(s.Close)

	f, err := NewFactory(s, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return f, s
}

// ============================================================
// Construction / installation
// ============================================================

func TestNewFactory_InstallsIntoScope(t *testing.T) {
	f, s := newTestFactory(t)

	found, ok := scope.Find[*Factory](s)
	require.True(t, ok)
	assert.Same(t, f, found)
}

func TestNewFactory_DuplicateOnSameScope(t *testing.T) {
	_, s := newTestFactory(t)

	_, err := NewFactory(s)
	require.Error(t, err)
	assert.Equal(t, types.ErrDuplicateMember, types.GetErrorCode(err))
}

func TestNewFactory_OnClosedScope(t *testing.T) {
	s := scope.New("gone")
	s.Close()

	_, err := NewFactory(s)
	require.Error(t, err)
	assert.Equal(t, types.ErrScopeClosed, types.GetErrorCode(err))
}

func TestFactory_Alive(t *testing.T) {
	f, _ := newTestFactory(t)
	assert.True(t, f.Alive())

	f.Close()
	assert.False(t, f.Alive(), "closed factory is dead")

	s2 := scope.New("other")
	f2, err := NewFactory(s2)
	require.NoError(t, err)
	s2.Close()
	assert.False(t, f2.Alive(), "factory on a closed scope is dead")
	f2.Close()
}

// ============================================================
// AddFilter
// ============================================================

func TestAddFilter_Validation(t *testing.T) {
	f, _ := newTestFactory(t)

	err := f.AddFilter(nil)
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidConfig, types.GetErrorCode(err))

	noop := func(context.Context, *Packet, *rawFrame) error { return nil }
	require.NoError(t, f.AddFilter(Filter1("grayscale", noop)))

	err = f.AddFilter(Filter1("grayscale", noop))
	require.Error(t, err)
	assert.Equal(t, types.ErrDuplicateFilter, types.GetErrorCode(err))
}

func TestAddFilter_OnClosedFactory(t *testing.T) {
	f, _ := newTestFactory(t)
	f.Close()

	err := f.AddFilter(Filter1("late", func(context.Context, *Packet, *rawFrame) error { return nil }))
	require.Error(t, err)
	assert.Equal(t, types.ErrFactoryClosed, types.GetErrorCode(err))
}

// ============================================================
// Dispatch / activation
// ============================================================

func TestDispatch_RunsSatisfiedFilter(t *testing.T) {
	f, _ := newTestFactory(t)

	var got atomic.Int32
	require.NoError(t, f.AddFilter(Filter1("reader",
		func(_ context.Context, _ *Packet, frame *rawFrame) error {
			got.Store(int32(frame.seq))
			return nil
		})))

	p := f.NewPacket()
	require.NoError(t, Decorate(p, &rawFrame{seq: 11}))
	assert.Equal(t, int32(0), got.Load(), "staged packet activates nothing")

	require.NoError(t, f.Dispatch(context.Background(), p))
	assert.Equal(t, int32(11), got.Load())
}

func TestDispatch_MultiInputActivation(t *testing.T) {
	f, _ := newTestFactory(t)

	var fired atomic.Int32
	require.NoError(t, f.AddFilter(Filter2("overlay",
		func(_ context.Context, _ *Packet, _ *rawFrame, _ *grayFrame) error {
			fired.Add(1)
			return nil
		})))

	p := f.NewPacket()
	require.NoError(t, Decorate(p, &rawFrame{seq: 1}))
	require.NoError(t, f.Dispatch(context.Background(), p))
	assert.Equal(t, int32(0), fired.Load(), "one of two inputs is not enough")

	// Publishing the missing input on the armed packet completes the set.
	require.NoError(t, Decorate(p, &grayFrame{seq: 1}))
	assert.Equal(t, int32(1), fired.Load())
}

func TestDispatch_CascadeActivation(t *testing.T) {
	f, _ := newTestFactory(t)

	require.NoError(t, f.AddFilter(Filter1("grayscale",
		func(_ context.Context, p *Packet, frame *rawFrame) error {
			return Decorate(p, &grayFrame{seq: frame.seq})
		})))

	var stats atomic.Int32
	require.NoError(t, f.AddFilter(Filter1("stats",
		func(_ context.Context, _ *Packet, gray *grayFrame) error {
			stats.Store(int32(gray.seq))
			return nil
		})))

	p := f.NewPacket()
	require.NoError(t, Decorate(p, &rawFrame{seq: 21}))
	require.NoError(t, f.Dispatch(context.Background(), p))

	assert.Equal(t, int32(21), stats.Load(), "the second filter runs off the first filter's output")
}

func TestDispatch_ExactlyOncePerPacket(t *testing.T) {
	f, _ := newTestFactory(t)

	var fired atomic.Int32
	require.NoError(t, f.AddFilter(Filter1("once",
		func(_ context.Context, _ *Packet, _ *rawFrame) error {
			fired.Add(1)
			return nil
		})))

	p := f.NewPacket()
	require.NoError(t, Decorate(p, &rawFrame{seq: 1}))
	require.NoError(t, f.Dispatch(context.Background(), p))

	// Further publications re-evaluate the graph but never re-claim a filter.
	require.NoError(t, Decorate(p, &grayFrame{seq: 1}))
	require.NoError(t, Decorate(p, frameStats{mean: 1}))
	assert.Equal(t, int32(1), fired.Load())

	// A second packet gets its own activation.
	p2 := f.NewPacket()
	require.NoError(t, Decorate(p2, &rawFrame{seq: 2}))
	require.NoError(t, f.Dispatch(context.Background(), p2))
	assert.Equal(t, int32(2), fired.Load())
}

func TestDispatch_FilterErrorIsSwallowed(t *testing.T) {
	f, _ := newTestFactory(t)

	require.NoError(t, f.AddFilter(Filter1("broken",
		func(context.Context, *Packet, *rawFrame) error {
			return errors.New("lens cap on")
		})))

	var healthy atomic.Int32
	require.NoError(t, f.AddFilter(Filter1("healthy",
		func(context.Context, *Packet, *rawFrame) error {
			healthy.Add(1)
			return nil
		})))

	p := f.NewPacket()
	require.NoError(t, Decorate(p, &rawFrame{seq: 1}))

	err := f.Dispatch(context.Background(), p)
	require.NoError(t, err, "filter errors never reach the dispatcher")
	assert.Equal(t, int32(1), healthy.Load(), "later filters still run")
}

func TestDispatch_DeferredFilterRunsOnPump(t *testing.T) {
	f, _ := newTestFactory(t)

	var fired atomic.Int32
	require.NoError(t, f.AddFilter(Filter1("slow",
		func(context.Context, *Packet, *rawFrame) error {
			fired.Add(1)
			return nil
		}).Deferred()))

	p := f.NewPacket()
	require.NoError(t, Decorate(p, &rawFrame{seq: 1}))
	require.NoError(t, f.Dispatch(context.Background(), p))

	require.Eventually(t, func() bool { return fired.Load() == 1 },
		2*time.Second, 5*time.Millisecond)

	stats := f.PumpStats()
	assert.GreaterOrEqual(t, stats.Submitted, int64(1))
}

func TestDispatch_OnClosedFactory(t *testing.T) {
	f, _ := newTestFactory(t)
	p := f.NewPacket()
	f.Close()

	err := f.Dispatch(context.Background(), p)
	require.Error(t, err)
	assert.Equal(t, types.ErrFactoryClosed, types.GetErrorCode(err))
}

func TestDispatch_StagedSubscribersFireOnArm(t *testing.T) {
	f, _ := newTestFactory(t)

	p := f.NewPacket()
	require.NoError(t, Decorate(p, &rawFrame{seq: 30}))

	var got *rawFrame
	OnInputReady(p, func(frame *rawFrame) { got = frame })
	assert.Nil(t, got, "staged packet holds subscribers back")

	require.NoError(t, f.Dispatch(context.Background(), p))
	require.NotNil(t, got)
	assert.Equal(t, 30, got.seq)
}

// ============================================================
// Rate limiting
// ============================================================

func TestDispatch_RateLimitAdmission(t *testing.T) {
	s := scope.New("throttled")
	t.Cleanup(s.Close)

	// One dispatch per 1000 seconds with burst 1: the first dispatch takes
	// the whole burst, so a second one cannot be admitted within any test
	// deadline.
	f, err := NewFactory(s,
		WithLogger(zaptest.NewLogger(t)),
		WithRateLimit(0.001, 1),
	)
	require.NoError(t, err)
	t.Cleanup(f.Close)

	require.NoError(t, f.Dispatch(context.Background(), f.NewPacket()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = f.Dispatch(ctx, f.NewPacket())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// ============================================================
// Close
// ============================================================

func TestFactory_Close_Idempotent(t *testing.T) {
	f, _ := newTestFactory(t)
	f.Close()
	assert.NotPanics(t, f.Close)
}

func TestFactory_Close_DrainsDeferredActivations(t *testing.T) {
	f, _ := newTestFactory(t)

	var fired atomic.Int32
	require.NoError(t, f.AddFilter(Filter1("drain",
		func(context.Context, *Packet, *rawFrame) error {
			fired.Add(1)
			return nil
		}).Deferred()))

	p := f.NewPacket()
	require.NoError(t, Decorate(p, &rawFrame{seq: 1}))
	require.NoError(t, f.Dispatch(context.Background(), p))

	f.Close()
	assert.Equal(t, int32(1), fired.Load(), "Close waits for queued activations")
}
