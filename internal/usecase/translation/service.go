package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
	"github.com/excellencecoachinghub/notesreader/internal/domain/notes"
	"github.com/excellencecoachinghub/notesreader/internal/metrics"
)

// DefaultTimeout bounds one translation request.
const DefaultTimeout = 15 * time.Second

// Service translates study text into a target language.
type Service struct {
	translator domain.Translator
	timeout    time.Duration
	logger     *zap.Logger
}

// New creates a translation service. translator may be nil, in which case
// every request fails with domain.ErrTranslationUnavailable.
func New(translator domain.Translator, timeout time.Duration, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{translator: translator, timeout: timeout, logger: logger}
}

// Translate strips markdown from text and translates it into lang.
func (s *Service) Translate(ctx context.Context, text, lang string) (string, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return "", fmt.Errorf("%w: target language is required", domain.ErrTranslationUnavailable)
	}
	plain := notes.PlainText(text)
	if plain == "" {
		return "", fmt.Errorf("%w: nothing to translate", domain.ErrTranslationUnavailable)
	}
	if s.translator == nil {
		metrics.TranslationsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("%w: no provider configured", domain.ErrTranslationUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	out, err := s.translator.Translate(ctx, plain, lang)
	if err != nil {
		status := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
		metrics.TranslationsTotal.WithLabelValues(status).Inc()
		s.logger.Warn("Translation failed",
			zap.String("lang", lang),
			zap.Int("chars", len(plain)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		if errors.Is(err, domain.ErrTranslationUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", domain.ErrTranslationUnavailable, err)
	}

	metrics.TranslationsTotal.WithLabelValues("ok").Inc()
	return out, nil
}
