// Package cache provides best-effort key/value stores with a fixed TTL per
// store. Entries are written as {"data": ..., "timestamp": ms} envelopes so
// freshness is decided by the reader's clock regardless of backend.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// KeyPrefix namespaces every key written by this application.
const KeyPrefix = "cf-visualizer-cache:"

// ErrMiss is returned by backends when a key is absent.
var ErrMiss = errors.New("cache miss")

// Backend is the raw storage under a Store.
type Backend interface {
	// Load returns the stored bytes or ErrMiss.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save stores the bytes. ttl is a hint for backends that can expire keys themselves.
	Save(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Remove deletes the key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// entry is the persisted envelope.
type entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// Store is a TTL cache over a Backend. Reads never fail: expired or
// malformed entries are evicted and reported as absent. Writes never fail
// the caller: backend errors are logged and dropped.
type Store struct {
	name    string
	backend Backend
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store named for logging purposes.
func New(name string, backend Backend, ttl time.Duration, logger *zap.Logger, opts ...Option) *Store {
	s := &Store{
		name:    name,
		backend: backend,
		ttl:     ttl,
		now:     time.Now,
		logger:  logger.Named("cache").With(zap.String("store", name)),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the store's name.
func (s *Store) Name() string {
	return s.name
}

// TTL returns the validity window of entries in this store.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Get returns the payload stored under key if it is still fresh.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool) {
	fullKey := KeyPrefix + key

	raw, err := s.backend.Load(ctx, fullKey)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			s.logger.Warn("Failed to read cache entry", zap.String("key", key), zap.Error(err))
		}

		return nil, false
	}

	var e entry
	if err := sonic.Unmarshal(raw, &e); err != nil || e.Timestamp == 0 || len(e.Data) == 0 {
		s.logger.Debug("Evicting malformed cache entry", zap.String("key", key))
		s.remove(ctx, fullKey)

		return nil, false
	}

	age := s.now().Sub(time.UnixMilli(e.Timestamp))
	if age >= s.ttl {
		s.logger.Debug("Evicting expired cache entry", zap.String("key", key), zap.Duration("age", age))
		s.remove(ctx, fullKey)

		return nil, false
	}

	return e.Data, true
}

// Set stores payload, which must be valid JSON, under key with the current timestamp.
func (s *Store) Set(ctx context.Context, key string, payload []byte) {
	raw, err := sonic.Marshal(&entry{
		Data:      payload,
		Timestamp: s.now().UnixMilli(),
	})
	if err != nil {
		s.logger.Warn("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}

	if err := s.backend.Save(ctx, KeyPrefix+key, raw, s.ttl); err != nil {
		s.logger.Warn("Failed to write cache entry", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes key from the store.
func (s *Store) Delete(ctx context.Context, key string) {
	s.remove(ctx, KeyPrefix+key)
}

func (s *Store) remove(ctx context.Context, fullKey string) {
	if err := s.backend.Remove(ctx, fullKey); err != nil {
		s.logger.Warn("Failed to remove cache entry", zap.String("key", fullKey), zap.Error(err))
	}
}

// GetJSON decodes a fresh entry into T. Entries that no longer decode are evicted.
func GetJSON[T any](ctx context.Context, s *Store, key string) (T, bool) {
	var value T

	payload, ok := s.Get(ctx, key)
	if !ok {
		return value, false
	}

	if err := sonic.Unmarshal(payload, &value); err != nil {
		s.logger.Debug("Evicting undecodable cache entry", zap.String("key", key), zap.Error(err))
		s.Delete(ctx, key)

		var zero T

		return zero, false
	}

	return value, true
}

// SetJSON encodes value and stores it under key.
func SetJSON(ctx context.Context, s *Store, key string, value any) {
	payload, err := sonic.Marshal(value)
	if err != nil {
		s.logger.Warn("Failed to encode cache payload", zap.String("key", key), zap.Error(err))
		return
	}

	s.Set(ctx, key, payload)
}
