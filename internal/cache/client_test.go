package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type stubBackend struct {
	mu    sync.Mutex
	data  map[string]string
	fail  bool
	calls int
}

func newStubBackend() *stubBackend {
	return &stubBackend{data: make(map[string]string)}
}

func (s *stubBackend) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return "", errors.New("connection refused")
	}
	val, ok := s.data[key]
	if !ok {
		return "", redis.Nil
	}
	return val, nil
}

func (s *stubBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return errors.New("connection refused")
	}
	s.data[key] = value
	return nil
}

func (s *stubBackend) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return errors.New("connection refused")
	}
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *stubBackend) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return nil, errors.New("connection refused")
	}
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *stubBackend) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("connection refused")
	}
	return nil
}

func (s *stubBackend) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubBackend) setFailing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = v
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func newTestClient(backend Backend, threshold uint32, openTimeout time.Duration) *Client {
	return NewWithBackend(backend, Config{
		FailureThreshold: threshold,
		OpenTimeout:      openTimeout,
	}, discardLogger())
}

func TestCacheRoundTrip(t *testing.T) {
	backend := newStubBackend()
	client := newTestClient(backend, 5, time.Minute)
	ctx := context.Background()

	type searchKey struct {
		Query    string `json:"query"`
		District string `json:"district"`
	}
	key := searchKey{Query: "quán chè", District: "Hoàn Kiếm"}

	var got []string
	if client.Get(ctx, "search", key, &got) {
		t.Fatal("expected miss before set")
	}
	if !client.Set(ctx, "search", key, []string{"v1", "v2"}, time.Hour) {
		t.Fatal("set failed")
	}
	if !client.Get(ctx, "search", key, &got) {
		t.Fatal("expected hit after set")
	}
	if len(got) != 2 || got[0] != "v1" {
		t.Fatalf("got %v", got)
	}

	// Structurally equal key must map to the same entry.
	var again []string
	if !client.Get(ctx, "search", searchKey{Query: "quán chè", District: "Hoàn Kiếm"}, &again) {
		t.Fatal("expected hit for structurally equal key")
	}

	stats := client.Stats()
	if stats.Hits != 2 || stats.Misses != 1 || stats.Sets != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestCacheKeyFormat(t *testing.T) {
	key, err := buildKey("search", "phở bò")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(key, "hanoigo:ai:search:") {
		t.Fatalf("key = %q", key)
	}
	hash := strings.TrimPrefix(key, "hanoigo:ai:search:")
	if len(hash) != 16 {
		t.Fatalf("hash length = %d, want 16", len(hash))
	}
}

func TestCacheDeleteAndClear(t *testing.T) {
	backend := newStubBackend()
	client := newTestClient(backend, 5, time.Minute)
	ctx := context.Background()

	client.Set(ctx, "search", "a", "1", time.Hour)
	client.Set(ctx, "search", "b", "2", time.Hour)
	client.Set(ctx, "intent", "a", "3", time.Hour)

	if !client.Delete(ctx, "search", "a") {
		t.Fatal("delete failed")
	}
	var v string
	if client.Get(ctx, "search", "a", &v) {
		t.Fatal("expected miss after delete")
	}

	if !client.Clear(ctx, "search") {
		t.Fatal("clear failed")
	}
	if client.Get(ctx, "search", "b", &v) {
		t.Fatal("expected miss after clear")
	}
	if !client.Get(ctx, "intent", "a", &v) {
		t.Fatal("clear must not touch other namespaces")
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	backend := newStubBackend()
	client := newTestClient(backend, 3, time.Minute)
	ctx := context.Background()

	backend.setFailing(true)
	var v string
	for i := 0; i < 3; i++ {
		if client.Get(ctx, "search", "k", &v) {
			t.Fatal("expected miss while backend failing")
		}
	}

	// Breaker is OPEN now; further calls short-circuit without reaching
	// the backend.
	before := backend.callCount()
	for i := 0; i < 5; i++ {
		if client.Get(ctx, "search", "k", &v) {
			t.Fatal("expected miss while breaker open")
		}
		if client.Set(ctx, "search", "k", "v", time.Hour) {
			t.Fatal("expected set rejection while breaker open")
		}
	}
	if backend.callCount() != before {
		t.Fatalf("backend called %d times while open", backend.callCount()-before)
	}

	if err := client.HealthCheck(ctx); err == nil {
		t.Fatal("expected health check failure while breaker open")
	}
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	backend := newStubBackend()
	client := newTestClient(backend, 2, 30*time.Millisecond)
	ctx := context.Background()

	backend.setFailing(true)
	var v string
	client.Get(ctx, "search", "k", &v)
	client.Get(ctx, "search", "k", &v)

	backend.setFailing(false)
	time.Sleep(50 * time.Millisecond)

	// First call after the cool-down is the HALF_OPEN trial; its success
	// closes the breaker again.
	if !client.Set(ctx, "search", "k", "v", time.Hour) {
		t.Fatal("trial set should succeed")
	}
	if !client.Get(ctx, "search", "k", &v) {
		t.Fatal("expected hit after recovery")
	}
	if v != "v" {
		t.Fatalf("v = %q", v)
	}
	if err := client.HealthCheck(ctx); err != nil {
		t.Fatalf("health check after recovery: %v", err)
	}
}

func TestMissDoesNotCountAsFailure(t *testing.T) {
	backend := newStubBackend()
	client := newTestClient(backend, 2, time.Minute)
	ctx := context.Background()

	var v string
	for i := 0; i < 10; i++ {
		client.Get(ctx, "search", "absent", &v)
	}
	if err := client.HealthCheck(ctx); err != nil {
		t.Fatalf("misses tripped the breaker: %v", err)
	}
}
