package loader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
)

// Default retry policy.
const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = time.Second
)

// Service fetches a material and validates it into a notes.Document.
type Service struct {
	source      Source
	maxAttempts int
	delay       time.Duration
	logger      *zap.Logger
}

// New creates a loader with the default retry policy.
func New(source Source, logger *zap.Logger) *Service {
	return &Service{
		source:      source,
		maxAttempts: DefaultMaxAttempts,
		delay:       DefaultRetryDelay,
		logger:      logger,
	}
}

// WithRetry overrides the retry policy. maxAttempts below 1 means one attempt.
func (s *Service) WithRetry(maxAttempts int, delay time.Duration) *Service {
	s.maxAttempts = max(maxAttempts, 1)
	s.delay = delay
	return s
}

// Load fetches ref and extracts the document. Source failures are retried
// with a fixed delay; a missing material or an invalid payload is returned at once.
func (s *Service) Load(ctx context.Context, ref string) (notes.Document, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		raw, err := s.source.Load(ctx, ref)
		if err == nil {
			doc, err := notes.Extract(raw)
			if err != nil {
				return notes.Document{}, fmt.Errorf("extract %s: %w", ref, err)
			}
			return doc, nil
		}
		if ctx.Err() != nil {
			return notes.Document{}, fmt.Errorf("load %s: %w", ref, context.Cause(ctx))
		}
		if !retryable(err) {
			return notes.Document{}, fmt.Errorf("load %s: %w", ref, err)
		}

		lastErr = err
		if attempt == s.maxAttempts {
			break
		}
		s.logger.Warn("Material load failed, retrying",
			zap.String("material_ref", ref),
			zap.Int("attempt", attempt),
			zap.Duration("delay", s.delay),
			zap.Error(err),
		)
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return notes.Document{}, fmt.Errorf("load %s: %w", ref, context.Cause(ctx))
		}
	}
	return notes.Document{}, fmt.Errorf("%w: load %s after %d attempts: %w",
		domain.ErrProcessingFailure, ref, s.maxAttempts, lastErr)
}

func retryable(err error) bool {
	return !errors.Is(err, domain.ErrNoData)
}
