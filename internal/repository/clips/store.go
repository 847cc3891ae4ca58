package clips

import (
	"context"
	"fmt"
	"time"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
)

// store is the consumer interface for narration clips (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	Del(ctx context.Context, key string) error
}

// Store keeps the last synthesized clip of each session for playback.
type Store struct {
	store store
	ttl   time.Duration
}

// New creates a clip store. Clips expire after ttl.
func New(s store, ttl time.Duration) *Store {
	return &Store{store: s, ttl: ttl}
}

func clipKey(sessionID string) string {
	return domain.KeyPrefix + "narration:" + sessionID
}

// Save replaces the clip of sessionID.
func (s *Store) Save(ctx context.Context, sessionID string, clip domain.Audio) error {
	key := clipKey(sessionID)
	if err := s.store.HSet(ctx, key, map[string]string{
		"content_type": clip.ContentType,
		"data":         string(clip.Data),
	}); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	if err := s.store.Expire(ctx, key, s.ttl, false); err != nil {
		return fmt.Errorf("expire %s: %w", key, err)
	}
	return nil
}

// Load returns the clip of sessionID or domain.ErrClipNotFound.
func (s *Store) Load(ctx context.Context, sessionID string) (domain.Audio, error) {
	key := clipKey(sessionID)
	m, err := s.store.HGetAll(ctx, key)
	if err != nil {
		return domain.Audio{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	data, ok := m["data"]
	if !ok {
		return domain.Audio{}, domain.ErrClipNotFound
	}
	return domain.Audio{Data: []byte(data), ContentType: m["content_type"]}, nil
}

// Delete drops the clip of sessionID.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	key := clipKey(sessionID)
	if err := s.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	return nil
}
