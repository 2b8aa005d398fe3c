package fetcher_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shashank2401/cf-visualizer/internal/cache"
	"github.com/shashank2401/cf-visualizer/internal/codeforces"
	"github.com/shashank2401/cf-visualizer/internal/fetcher"
	"github.com/shashank2401/cf-visualizer/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type env struct {
	clock *fakeClock
	store *cache.Store
	guard *ratelimit.Guard
}

func newEnv() *env {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}

	return &env{
		clock: clock,
		store: cache.New("session", cache.NewMemory(), 10*time.Minute, zap.NewNop(), cache.WithClock(clock.Now)),
		guard: ratelimit.NewGuard(ratelimit.WithClock(clock.Now)),
	}
}

func newCoordinator(e *env, fetch fetcher.FetchFunc[string]) *fetcher.Coordinator[string] {
	return fetcher.New(fetcher.Config[string]{
		Name:        "test",
		CachePrefix: "test:",
		Store:       e.store,
		Guard:       e.guard,
		Fetch:       fetch,
		Logger:      zap.NewNop(),
	})
}

// countingFetch returns "data-<key>" and counts calls per key.
type countingFetch struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func (f *countingFetch) Fetch(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[key]++

	if f.err != nil {
		return "", f.err
	}

	return "data-" + key, nil
}

func (f *countingFetch) Calls(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[key]
}

func TestCoordinatorSuccessIsCached(t *testing.T) {
	t.Parallel()

	e := newEnv()
	fetch := &countingFetch{}
	c := newCoordinator(e, fetch.Fetch)

	data, err := c.Load(context.Background(), "Tourist")
	require.NoError(t, err)
	assert.Equal(t, "data-tourist", data)

	snap := c.Snapshot()
	assert.Equal(t, fetcher.StateSuccess, snap.State)
	assert.Equal(t, "tourist", snap.Key)
	assert.Equal(t, "data-tourist", snap.Data)
	assert.NoError(t, snap.Err)

	// A second coordinator sharing the store is served from cache
	other := newCoordinator(e, fetch.Fetch)
	data, err = other.Load(context.Background(), " tourist ")
	require.NoError(t, err)
	assert.Equal(t, "data-tourist", data)
	assert.Equal(t, 1, fetch.Calls("tourist"))

	// Once the TTL elapses the network is used again
	e.clock.Advance(10 * time.Minute)
	_, err = other.Load(context.Background(), "tourist")
	require.NoError(t, err)
	assert.Equal(t, 2, fetch.Calls("tourist"))
}

func TestCoordinatorEmptyKeyStaysIdle(t *testing.T) {
	t.Parallel()

	e := newEnv()
	fetch := &countingFetch{}
	c := newCoordinator(e, fetch.Fetch)

	data, err := c.Load(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Equal(t, fetcher.StateIdle, c.Snapshot().State)
	assert.Zero(t, fetch.Calls(""))
}

func TestCoordinatorCachesNotFound(t *testing.T) {
	t.Parallel()

	e := newEnv()
	fetch := &countingFetch{err: &codeforces.NotFoundError{Handle: "ghost"}}
	c := newCoordinator(e, fetch.Fetch)

	_, err := c.Load(context.Background(), "ghost")
	require.ErrorIs(t, err, codeforces.ErrNotFound)
	assert.Equal(t, fetcher.StateError, c.Snapshot().State)

	fresh := newCoordinator(e, fetch.Fetch)
	_, err = fresh.Load(context.Background(), "ghost")

	var notFound *codeforces.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "ghost", notFound.Handle)
	assert.Equal(t, "User 'ghost' not found", fresh.Snapshot().Err.Error())
	assert.Equal(t, 1, fetch.Calls("ghost"))
}

func TestCoordinatorCachesAPIError(t *testing.T) {
	t.Parallel()

	e := newEnv()
	fetch := &countingFetch{err: &codeforces.APIError{Comment: "handle: Field should contain only Latin letters"}}
	c := newCoordinator(e, fetch.Fetch)

	_, err := c.Load(context.Background(), "bad!")
	require.ErrorIs(t, err, codeforces.ErrAPI)

	_, err = c.Load(context.Background(), "bad!")
	require.ErrorIs(t, err, codeforces.ErrAPI)
	assert.Equal(t, "handle: Field should contain only Latin letters", err.Error())
	assert.Equal(t, 1, fetch.Calls("bad!"))
}

func TestCoordinatorDoesNotCacheTransientErrors(t *testing.T) {
	t.Parallel()

	e := newEnv()
	fetch := &countingFetch{err: &codeforces.StatusError{Code: 503, Message: "Service Unavailable"}}
	c := newCoordinator(e, fetch.Fetch)

	_, err := c.Load(context.Background(), "tourist")
	require.ErrorIs(t, err, codeforces.ErrNetwork)

	_, err = c.Load(context.Background(), "tourist")
	require.ErrorIs(t, err, codeforces.ErrNetwork)
	assert.Equal(t, 2, fetch.Calls("tourist"))
}

func TestCoordinatorThrottleBlocksEveryone(t *testing.T) {
	t.Parallel()

	e := newEnv()
	throttled := &countingFetch{err: &codeforces.ThrottledError{RetryAfter: 120 * time.Second}}
	ratings := newCoordinator(e, throttled.Fetch)

	_, err := ratings.Load(context.Background(), "alice")
	require.ErrorIs(t, err, ratelimit.ErrTooManyRequests)
	assert.Equal(t, "Too many requests. Please wait 120 seconds.", err.Error())
	assert.True(t, e.guard.IsBlocked())

	e.clock.Advance(10 * time.Second)

	healthy := &countingFetch{}
	submissions := newCoordinator(e, healthy.Fetch)

	_, err = submissions.Load(context.Background(), "bob")
	require.Error(t, err)
	assert.Equal(t, "Too many requests. Please wait 110 seconds.", err.Error())
	assert.Zero(t, healthy.Calls("bob"))
	assert.Equal(t, fetcher.StateError, submissions.Snapshot().State)

	// Throttle outcomes are never cached
	e.clock.Advance(110 * time.Second)
	data, err := submissions.Load(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "data-bob", data)
}

func TestCoordinatorCallLimitCommentArmsGuard(t *testing.T) {
	t.Parallel()

	e := newEnv()
	fetch := &countingFetch{err: codeforces.ClassifyFailure("Call limit exceeded", "alice")}
	c := newCoordinator(e, fetch.Fetch)

	_, err := c.Load(context.Background(), "alice")
	require.ErrorIs(t, err, ratelimit.ErrTooManyRequests)
	assert.Equal(t, "Too many requests. Please wait 900 seconds.", err.Error())
	assert.Equal(t, ratelimit.DefaultRetryAfter, e.guard.Remaining())

	// Nothing was cached, so the next load after the window hits the network
	e.clock.Advance(ratelimit.DefaultRetryAfter)
	_, err = c.Load(context.Background(), "alice")
	require.ErrorIs(t, err, ratelimit.ErrTooManyRequests)
	assert.Equal(t, 2, fetch.Calls("alice"))
}

func TestCoordinatorCacheHitWhileBlocked(t *testing.T) {
	t.Parallel()

	e := newEnv()
	fetch := &countingFetch{}
	c := newCoordinator(e, fetch.Fetch)

	_, err := c.Load(context.Background(), "tourist")
	require.NoError(t, err)

	e.guard.RecordThrottled(time.Minute)

	data, err := newCoordinator(e, fetch.Fetch).Load(context.Background(), "tourist")
	require.NoError(t, err)
	assert.Equal(t, "data-tourist", data)
}

func TestCoordinatorDiscardsStaleResult(t *testing.T) {
	t.Parallel()

	e := newEnv()
	started := make(chan struct{})
	release := make(chan struct{})

	c := newCoordinator(e, func(_ context.Context, key string) (string, error) {
		if key == "alice" {
			close(started)
			<-release
		}

		return "data-" + key, nil
	})

	type result struct {
		data string
		err  error
	}

	aliceDone := make(chan result, 1)
	go func() {
		data, err := c.Load(context.Background(), "alice")
		aliceDone <- result{data: data, err: err}
	}()

	<-started
	assert.True(t, c.Snapshot().Loading())

	data, err := c.Load(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, "data-bob", data)

	close(release)

	late := <-aliceDone
	require.ErrorIs(t, late.err, fetcher.ErrStale)
	assert.Empty(t, late.data)

	snap := c.Snapshot()
	assert.Equal(t, "bob", snap.Key)
	assert.Equal(t, fetcher.StateSuccess, snap.State)
	assert.Equal(t, "data-bob", snap.Data)

	_, cached := e.store.Get(context.Background(), "test:alice")
	assert.False(t, cached, "stale result must not be cached")
}

func TestCoordinatorKeyChangeCancelsRequest(t *testing.T) {
	t.Parallel()

	e := newEnv()
	started := make(chan struct{})
	cancelled := make(chan struct{})

	c := newCoordinator(e, func(ctx context.Context, key string) (string, error) {
		if key == "alice" {
			close(started)
			<-ctx.Done()
			close(cancelled)

			return "", ctx.Err()
		}

		return "data-" + key, nil
	})

	errs := make(chan error, 1)
	go func() {
		_, err := c.Load(context.Background(), "alice")
		errs <- err
	}()

	<-started

	_, err := c.Load(context.Background(), "bob")
	require.NoError(t, err)

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("request for the old key was not cancelled")
	}

	assert.ErrorIs(t, <-errs, fetcher.ErrStale)
	assert.Equal(t, fetcher.StateSuccess, c.Snapshot().State)
}

func TestCoordinatorDeduplicatesConcurrentLoads(t *testing.T) {
	t.Parallel()

	e := newEnv()

	var calls atomic.Int32

	release := make(chan struct{})
	c := newCoordinator(e, func(_ context.Context, key string) (string, error) {
		calls.Add(1)
		<-release

		return "data-" + key, nil
	})

	var wg sync.WaitGroup

	results := make([]string, 4)
	for i := range results {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			data, err := c.Load(context.Background(), "tourist")
			assert.NoError(t, err)

			results[i] = data
		}(i)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 5*time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, data := range results {
		assert.Equal(t, "data-tourist", data)
	}
}

func TestCoordinatorClose(t *testing.T) {
	t.Parallel()

	e := newEnv()
	started := make(chan struct{})

	c := newCoordinator(e, func(ctx context.Context, _ string) (string, error) {
		close(started)
		<-ctx.Done()

		return "", ctx.Err()
	})

	errs := make(chan error, 1)
	go func() {
		_, err := c.Load(context.Background(), "alice")
		errs <- err
	}()

	<-started
	c.Close()

	assert.ErrorIs(t, <-errs, fetcher.ErrStale)

	_, err := c.Load(context.Background(), "bob")
	assert.ErrorIs(t, err, fetcher.ErrClosed)
}

func TestCoordinatorCallerContext(t *testing.T) {
	t.Parallel()

	e := newEnv()
	release := make(chan struct{})

	c := newCoordinator(e, func(_ context.Context, key string) (string, error) {
		<-release
		return "data-" + key, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Load(ctx, "tourist")
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, fetcher.StateLoading, c.Snapshot().State)

	// The fetch outlives the caller and its result still lands in the snapshot
	release <- struct{}{}

	require.Eventually(t, func() bool {
		return c.Snapshot().State == fetcher.StateSuccess
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "data-tourist", c.Snapshot().Data)
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", fetcher.StateIdle.String())
	assert.Equal(t, "loading", fetcher.StateLoading.String())
	assert.Equal(t, "success", fetcher.StateSuccess.String())
	assert.Equal(t, "error", fetcher.StateError.String())
}
