package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
	"github.com/excellencecoachinghub/notesreader/internal/metrics"
)

const opTranslate = "translate"

// Translator translates text through the chat completions API.
type Translator struct {
	client     *openai.Client
	model      string
	provider   string
	sourceLang string
	logger     *zap.Logger
}

// NewTranslator creates an OpenAI-compatible translator. sourceLang defaults to "en".
func NewTranslator(cfg *Config, sourceLang string) *Translator {
	if sourceLang == "" {
		sourceLang = "en"
	}
	return &Translator{
		client:     newClient(cfg),
		model:      cfg.Model,
		provider:   cfg.Provider,
		sourceLang: sourceLang,
		logger:     cfg.Logger,
	}
}

// Translate implements domain.Translator.
func (t *Translator) Translate(ctx context.Context, text, targetLang string) (string, error) {
	start := time.Now()
	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("Translate the user's text from language %q to language %q. "+
					"Reply with the translation only.", t.sourceLang, targetLang),
			},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	duration := time.Since(start)

	if err != nil {
		t.fail("api_error")
		return "", parseAPIError(opTranslate, err, domain.ErrTranslationUnavailable)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		t.fail("empty_response")
		return "", fmt.Errorf("empty translation: %w", domain.ErrTranslationUnavailable)
	}

	metrics.LLMRequestsTotal.WithLabelValues(t.provider, opTranslate, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(t.provider, opTranslate).Observe(duration.Seconds())
	recordTokens(t.provider, t.model, resp.Usage)

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// HealthCheck verifies API availability via ListModels.
func (t *Translator) HealthCheck(ctx context.Context) error {
	return healthCheck(ctx, t.client)
}

func (t *Translator) fail(errType string) {
	metrics.LLMRequestsTotal.WithLabelValues(t.provider, opTranslate, "error").Inc()
	metrics.LLMErrorsTotal.WithLabelValues(t.provider, opTranslate, errType).Inc()
}
