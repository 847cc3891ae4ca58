package transcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/excellencecoachinghub/notesreader/internal/db"
	"github.com/excellencecoachinghub/notesreader/internal/domain"
)

var cacheKeyPrefix = domain.KeyPrefix + "translation:"

// store is the consumer interface for the translation cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedTranslator caches translations in a key-value store. Cache failures
// are logged and fall through to the inner translator.
type CachedTranslator struct {
	inner      domain.Translator
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator. cacheTotal has the label "result"
// ("hit"/"miss") and may be nil.
func New(
	inner domain.Translator,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedTranslator {
	return &CachedTranslator{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Translate returns a cached translation or calls the inner translator.
func (c *CachedTranslator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	key := cacheKey(text, targetLang)

	if cached, ok := c.get(ctx, key); ok {
		c.inc("hit")
		return cached, nil
	}
	c.inc("miss")

	out, err := c.inner.Translate(ctx, text, targetLang)
	if err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}

	if err := c.store.SetWithTTL(ctx, key, []byte(out), c.ttl); err != nil {
		c.logger.Warn("Failed to cache translation", zap.String("key", key), zap.Error(err))
	}
	return out, nil
}

func (c *CachedTranslator) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (c *CachedTranslator) get(ctx context.Context, key string) (string, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached translation", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	if len(data) == 0 {
		return "", false
	}
	return string(data), true
}

// cacheKey hashes the language and the text. The NUL separator keeps
// ("en", "x") and ("e", "nx") apart.
func cacheKey(text, lang string) string {
	h := sha256.Sum256([]byte(lang + "\x00" + text))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}
