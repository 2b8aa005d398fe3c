// Package fetcher coordinates cached, de-duplicated and cancellable loads of
// API data keyed by handle.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shashank2401/cf-visualizer/internal/cache"
	"github.com/shashank2401/cf-visualizer/internal/codeforces"
	"github.com/shashank2401/cf-visualizer/internal/ratelimit"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrStale is returned to callers whose request was superseded by a
	// newer identity key. Its result was never committed.
	ErrStale = errors.New("request superseded by a newer key")
	// ErrClosed is returned once the coordinator has been closed.
	ErrClosed = errors.New("coordinator closed")
)

// State is the lifecycle of the current identity key.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Snapshot is the view-facing state of a coordinator.
type Snapshot[T any] struct {
	Key   string
	State State
	Data  T
	Err   error
}

// Loading reports whether a request for Key is in flight.
func (s Snapshot[T]) Loading() bool {
	return s.State == StateLoading
}

// FetchFunc performs the network request for an identity key.
type FetchFunc[T any] func(ctx context.Context, key string) (T, error)

// KeyFunc maps caller input to an identity key. An empty key means idle.
type KeyFunc func(input string) string

// Config describes a coordinator.
type Config[T any] struct {
	// Name is used for logs and spans.
	Name string
	// CachePrefix namespaces the entity inside the cache store.
	CachePrefix string
	Store       *cache.Store
	Guard       *ratelimit.Guard
	Fetch       FetchFunc[T]
	Key         KeyFunc
	Logger      *zap.Logger
}

// Coordinator tracks one identity key at a time. Changing the key cancels
// the request for the previous key, and any result that arrives for an
// outdated key is discarded.
type Coordinator[T any] struct {
	name   string
	prefix string
	store  *cache.Store
	guard  *ratelimit.Guard
	fetch  FetchFunc[T]
	keyFn  KeyFunc
	logger *zap.Logger
	tracer trace.Tracer
	group  singleflight.Group

	mu         sync.Mutex
	key        string
	generation uint64
	keyCtx     context.Context
	cancel     context.CancelFunc
	state      State
	data       T
	err        error
	closed     bool
}

// New creates a Coordinator from cfg.
func New[T any](cfg Config[T]) *Coordinator[T] {
	keyFn := cfg.Key
	if keyFn == nil {
		keyFn = codeforces.HandleKey
	}

	return &Coordinator[T]{
		name:   cfg.Name,
		prefix: cfg.CachePrefix,
		store:  cfg.Store,
		guard:  cfg.Guard,
		fetch:  cfg.Fetch,
		keyFn:  keyFn,
		logger: cfg.Logger.Named("fetcher").With(zap.String("coordinator", cfg.Name)),
		tracer: otel.Tracer("github.com/shashank2401/cf-visualizer/internal/fetcher"),
	}
}

// Load resolves input from cache or network. The returned error is the
// committed Error state, ErrStale when the key changed before completion, or
// the caller's context error when ctx ends first. In that case the fetch keeps
// running and its result is still committed to the snapshot.
func (c *Coordinator[T]) Load(ctx context.Context, input string) (T, error) {
	var zero T

	key := c.keyFn(input)

	gen, keyCtx, err := c.switchKey(key)
	if err != nil {
		return zero, err
	}

	if key == "" {
		return zero, nil
	}

	ctx, span := c.tracer.Start(ctx, "fetcher."+c.name+".load", trace.WithAttributes(
		attribute.String("fetcher.key", key),
	))
	defer span.End()

	// Cached success or cached failure short-circuits the network
	if cached, ok := c.readCache(ctx, key); ok {
		span.SetAttributes(attribute.Bool("fetcher.cache_hit", true))
		c.logger.Debug("Serving from cache", zap.String("key", key))

		if cached.Failure != nil {
			return c.commit(gen, zero, cached.Failure.err())
		}

		return c.commit(gen, *cached.Data, nil)
	}

	if err := c.guard.Check(); err != nil {
		c.logger.Debug("Request blocked by rate limit", zap.String("key", key), zap.Error(err))
		return c.commit(gen, zero, err)
	}

	if !c.markLoading(gen) {
		return zero, ErrStale
	}

	ch := c.group.DoChan(fmt.Sprintf("%d:%s", gen, key), func() (any, error) {
		data, err := c.fetchAndStore(keyCtx, key)
		return data, err
	})

	select {
	case res := <-ch:
		data, _ := res.Val.(T)
		return c.commit(gen, data, res.Err)
	case <-ctx.Done():
		// The fetch runs on the key context and still owns this generation.
		go func() {
			res := <-ch
			data, _ := res.Val.(T)
			_, _ = c.commit(gen, data, res.Err)
		}()

		return zero, ctx.Err()
	}
}

// Snapshot returns the current state.
func (c *Coordinator[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot[T]{
		Key:   c.key,
		State: c.state,
		Data:  c.data,
		Err:   c.err,
	}
}

// Close cancels any in-flight request. Later loads fail with ErrClosed.
func (c *Coordinator[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}

	c.closed = true
	c.generation++
}

// switchKey moves the coordinator to key if it differs from the current
// one, cancelling the old key's request and resetting to idle.
func (c *Coordinator[T]) switchKey(key string) (uint64, context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, nil, ErrClosed
	}

	if key != c.key || c.keyCtx == nil {
		if c.cancel != nil {
			c.cancel()
		}

		var zero T

		c.key = key
		c.generation++
		c.state = StateIdle
		c.data = zero
		c.err = nil
		c.keyCtx, c.cancel = context.WithCancel(context.Background())
	}

	return c.generation, c.keyCtx, nil
}

func (c *Coordinator[T]) markLoading(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return false
	}

	c.state = StateLoading
	c.err = nil

	return true
}

// commit records the outcome if gen is still current.
func (c *Coordinator[T]) commit(gen uint64, data T, err error) (T, error) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation || errors.Is(err, ErrStale) {
		c.logger.Debug("Discarding stale result", zap.Uint64("generation", gen))
		return zero, ErrStale
	}

	if err != nil {
		c.state = StateError
		c.data = zero
		c.err = err

		return zero, err
	}

	c.state = StateSuccess
	c.data = data
	c.err = nil

	return data, nil
}

// fetchAndStore runs inside the singleflight group.
func (c *Coordinator[T]) fetchAndStore(keyCtx context.Context, key string) (T, error) {
	var zero T

	data, err := c.fetch(keyCtx, key)
	if keyCtx.Err() != nil {
		return zero, ErrStale
	}

	if err != nil {
		var throttled *codeforces.ThrottledError
		if errors.As(err, &throttled) {
			waitErr := c.guard.RecordThrottled(throttled.RetryAfter)
			c.logger.Warn("Throttled by server",
				zap.String("key", key),
				zap.Duration("retry_after", waitErr.Wait))

			return zero, waitErr
		}

		if f := failureFor(err); f != nil {
			cache.SetJSON(keyCtx, c.store, c.prefix+key, outcome[T]{Failure: f})
		}

		c.logger.Debug("Request failed", zap.String("key", key), zap.Error(err))

		return zero, err
	}

	cache.SetJSON(keyCtx, c.store, c.prefix+key, outcome[T]{Data: &data})

	return data, nil
}

// readCache returns a cached outcome holding either data or a failure.
func (c *Coordinator[T]) readCache(ctx context.Context, key string) (outcome[T], bool) {
	cached, ok := cache.GetJSON[outcome[T]](ctx, c.store, c.prefix+key)
	if !ok {
		return cached, false
	}

	if cached.Failure == nil && cached.Data == nil {
		c.store.Delete(ctx, c.prefix+key)
		return cached, false
	}

	return cached, true
}
