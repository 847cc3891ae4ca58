package transcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/excellencecoachinghub/notesreader/internal/db"
)

type mockTranslator struct {
	out   string
	err   error
	calls int
}

func (m *mockTranslator) Translate(_ context.Context, text, lang string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.out, nil
}

type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func newCounter() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
}

func TestTranslate_CacheMiss(t *testing.T) {
	inner := &mockTranslator{out: "Hola"}
	var setKey string
	var setTTL time.Duration
	ms := &mockKVStore{setFn: func(_ context.Context, key string, value []byte, ttl time.Duration) error {
		setKey, setTTL = key, ttl
		if string(value) != "Hola" {
			t.Errorf("cached value = %q", value)
		}
		return nil
	}}
	counter := newCounter()
	c := New(inner, ms, time.Hour, counter, zap.NewNop())

	out, err := c.Translate(context.Background(), "Hello", "es")
	if err != nil || out != "Hola" {
		t.Fatalf("Translate = %q, %v", out, err)
	}
	if !strings.HasPrefix(setKey, "notesreader:translation:") || setTTL != time.Hour {
		t.Errorf("set key=%s ttl=%s", setKey, setTTL)
	}
	if testutil.ToFloat64(counter.WithLabelValues("miss")) != 1 {
		t.Error("expected one miss")
	}
}

func TestTranslate_CacheHit(t *testing.T) {
	inner := &mockTranslator{out: "unused"}
	ms := &mockKVStore{getFn: func(context.Context, string) ([]byte, error) {
		return []byte("Bonjour"), nil
	}}
	counter := newCounter()
	c := New(inner, ms, time.Hour, counter, zap.NewNop())

	out, err := c.Translate(context.Background(), "Hello", "fr")
	if err != nil || out != "Bonjour" {
		t.Fatalf("Translate = %q, %v", out, err)
	}
	if inner.calls != 0 {
		t.Errorf("inner called %d times on hit", inner.calls)
	}
	if testutil.ToFloat64(counter.WithLabelValues("hit")) != 1 {
		t.Error("expected one hit")
	}
}

func TestTranslate_InnerError(t *testing.T) {
	inner := &mockTranslator{err: errors.New("provider down")}
	setCalled := false
	ms := &mockKVStore{setFn: func(context.Context, string, []byte, time.Duration) error {
		setCalled = true
		return nil
	}}
	c := New(inner, ms, time.Hour, nil, zap.NewNop())

	if _, err := c.Translate(context.Background(), "Hello", "de"); err == nil {
		t.Fatal("expected error")
	}
	if setCalled {
		t.Error("failed translations must not be cached")
	}
}

func TestTranslate_StoreErrorsFallThrough(t *testing.T) {
	inner := &mockTranslator{out: "Ciao"}
	ms := &mockKVStore{
		getFn: func(context.Context, string) ([]byte, error) { return nil, errors.New("timeout") },
		setFn: func(context.Context, string, []byte, time.Duration) error { return errors.New("timeout") },
	}
	c := New(inner, ms, time.Hour, nil, zap.NewNop())

	out, err := c.Translate(context.Background(), "Hello", "it")
	if err != nil || out != "Ciao" {
		t.Fatalf("Translate = %q, %v", out, err)
	}
}

func TestCacheKey_SeparatesLanguageAndText(t *testing.T) {
	if cacheKey("x", "en") == cacheKey("nx", "e") {
		t.Error("keys must differ")
	}
	if cacheKey("Hello", "es") != cacheKey("Hello", "es") {
		t.Error("keys must be stable")
	}
}
