// Package cache wraps the distributed cache backend with namespaced hashed
// keys and a circuit breaker, so a failing cache can never block or slow the
// retrieval path. Every operation is best-effort: errors are logged and
// counted, never returned to callers.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
)

const keyPrefix = "hanoigo:ai:"

var errMiss = errors.New("cache miss")

// Config tunes the backend connection and the breaker.
type Config struct {
	Addr     string
	Password string
	DB       int

	// FailureThreshold is the consecutive-failure count that trips the
	// breaker OPEN.
	FailureThreshold uint32
	// OpenTimeout is the cool-down before the breaker allows a trial call.
	OpenTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Addr:             "localhost:6379",
		FailureThreshold: 5,
		OpenTimeout:      60 * time.Second,
	}
}

// Stats is a point-in-time snapshot of cache activity.
type Stats struct {
	Hits         int64
	Misses       int64
	Sets         int64
	Deletes      int64
	Errors       int64
	BreakerState string
}

// Backend is the narrow slice of the cache store the client needs. Satisfied
// by *redis.Client through redisBackend; tests substitute a stub.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
	Ping(ctx context.Context) error
}

// Client is the resilient cache layer. Safe for concurrent use; the breaker
// serializes its own state transitions internally.
type Client struct {
	backend Backend
	breaker *gobreaker.CircuitBreaker[string]
	logger  *slog.Logger

	hits    atomic.Int64
	misses  atomic.Int64
	sets    atomic.Int64
	deletes atomic.Int64
	errs    atomic.Int64
}

// New connects a Redis-backed client.
func New(cfg Config, logger *slog.Logger) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewWithBackend(&redisBackend{rdb: rdb}, cfg, logger)
}

// NewWithBackend builds a client over an arbitrary backend.
func NewWithBackend(backend Backend, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "cache")

	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = DefaultConfig().FailureThreshold
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = DefaultConfig().OpenTimeout
	}

	settings := gobreaker.Settings{
		Name: "cache",
		// One trial call while HALF_OPEN; its success closes the breaker.
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			// A miss is a healthy answer from the backend.
			return err == nil || errors.Is(err, errMiss)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit_breaker_state_change", "from", from.String(), "to", to.String())
		},
	}

	return &Client{
		backend: backend,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
		logger:  logger,
	}
}

// Get reads a value into dest and reports a hit. Misses, backend failures and
// an OPEN breaker all come back as false.
func (c *Client) Get(ctx context.Context, namespace string, key any, dest any) bool {
	cacheKey, err := buildKey(namespace, key)
	if err != nil {
		c.logger.Warn("cache_key_error", "namespace", namespace, "error", err)
		return false
	}

	raw, err := c.breaker.Execute(func() (string, error) {
		val, err := c.backend.Get(ctx, cacheKey)
		if errors.Is(err, redis.Nil) {
			// A miss is a healthy backend answer, not a failure.
			return "", errMiss
		}
		return val, err
	})
	if err != nil {
		if !errors.Is(err, errMiss) && !isBreakerShortCircuit(err) {
			c.errs.Add(1)
			c.logger.Warn("cache_get_error", "namespace", namespace, "error", err)
		}
		c.misses.Add(1)
		return false
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		c.misses.Add(1)
		c.logger.Warn("cache_decode_error", "namespace", namespace, "error", err)
		return false
	}
	c.hits.Add(1)
	return true
}

// Set stores a value with a TTL. Best-effort; reports whether the write
// reached the backend.
func (c *Client) Set(ctx context.Context, namespace string, key any, value any, ttl time.Duration) bool {
	cacheKey, err := buildKey(namespace, key)
	if err != nil {
		c.logger.Warn("cache_key_error", "namespace", namespace, "error", err)
		return false
	}
	serialized, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("cache_encode_error", "namespace", namespace, "error", err)
		return false
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	_, err = c.breaker.Execute(func() (string, error) {
		return "", c.backend.Set(ctx, cacheKey, string(serialized), ttl)
	})
	if err != nil {
		if !isBreakerShortCircuit(err) {
			c.errs.Add(1)
			c.logger.Warn("cache_set_error", "namespace", namespace, "error", err)
		}
		return false
	}
	c.sets.Add(1)
	return true
}

// Delete removes one key. Best-effort.
func (c *Client) Delete(ctx context.Context, namespace string, key any) bool {
	cacheKey, err := buildKey(namespace, key)
	if err != nil {
		return false
	}

	_, err = c.breaker.Execute(func() (string, error) {
		return "", c.backend.Del(ctx, cacheKey)
	})
	if err != nil {
		if !isBreakerShortCircuit(err) {
			c.errs.Add(1)
			c.logger.Warn("cache_delete_error", "namespace", namespace, "error", err)
		}
		return false
	}
	c.deletes.Add(1)
	return true
}

// Clear removes every key in a namespace. Best-effort.
func (c *Client) Clear(ctx context.Context, namespace string) bool {
	pattern := keyPrefix + namespace + ":*"

	_, err := c.breaker.Execute(func() (string, error) {
		keys, err := c.backend.ScanKeys(ctx, pattern)
		if err != nil {
			return "", err
		}
		if len(keys) == 0 {
			return "", nil
		}
		return "", c.backend.Del(ctx, keys...)
	})
	if err != nil {
		if !isBreakerShortCircuit(err) {
			c.errs.Add(1)
			c.logger.Warn("cache_clear_error", "namespace", namespace, "error", err)
		}
		return false
	}
	return true
}

// HealthCheck pings the backend. Returns an error while the breaker is OPEN
// without touching the backend.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return fmt.Errorf("cache circuit breaker open")
	}
	if err := c.backend.Ping(ctx); err != nil {
		return fmt.Errorf("cache ping: %w", err)
	}
	return nil
}

// Stats returns a snapshot of counters and breaker state.
func (c *Client) Stats() Stats {
	return Stats{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Sets:         c.sets.Load(),
		Deletes:      c.deletes.Load(),
		Errors:       c.errs.Load(),
		BreakerState: c.breaker.State().String(),
	}
}

// buildKey maps arbitrary structured keys to a bounded-length cache key:
// prefix + namespace + a 16-hex-char hash of the serialized key. Two
// structurally equal keys always produce the same cache key.
func buildKey(namespace string, key any) (string, error) {
	var material []byte
	switch k := key.(type) {
	case string:
		material = []byte(k)
	default:
		serialized, err := json.Marshal(key)
		if err != nil {
			return "", fmt.Errorf("serialize cache key: %w", err)
		}
		material = serialized
	}

	sum := sha256.Sum256(material)
	return keyPrefix + namespace + ":" + hex.EncodeToString(sum[:])[:16], nil
}

func isBreakerShortCircuit(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

type redisBackend struct {
	rdb *redis.Client
}

func (b *redisBackend) Get(ctx context.Context, key string) (string, error) {
	return b.rdb.Get(ctx, key).Result()
}

func (b *redisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return b.rdb.Set(ctx, key, value, ttl).Err()
}

func (b *redisBackend) Del(ctx context.Context, keys ...string) error {
	return b.rdb.Del(ctx, keys...).Err()
}

func (b *redisBackend) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := b.rdb.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func (b *redisBackend) Ping(ctx context.Context) error {
	return b.rdb.Ping(ctx).Err()
}
