package openai

import (
	"context"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/excellencecoachinghub/notesreader/internal/domain"
	"github.com/excellencecoachinghub/notesreader/internal/metrics"
)

const opSpeech = "speech"

// DefaultVoice is used when the requested voice has no name.
const DefaultVoice = openai.VoiceAlloy

// Synthesizer renders speech through the audio/speech API. The API has no
// pitch or volume controls; only Voice.Name and Voice.Rate are applied.
type Synthesizer struct {
	client   *openai.Client
	model    string
	provider string
	logger   *zap.Logger
}

// NewSynthesizer creates an OpenAI-compatible speech synthesizer.
func NewSynthesizer(cfg *Config) *Synthesizer {
	model := cfg.Model
	if model == "" {
		model = string(openai.TTSModel1)
	}
	return &Synthesizer{
		client:   newClient(cfg),
		model:    model,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// Speak implements domain.Synthesizer. It returns an MP3 clip.
func (s *Synthesizer) Speak(ctx context.Context, text string, voice domain.Voice) (domain.Audio, error) {
	name := openai.SpeechVoice(voice.Name)
	if name == "" {
		name = DefaultVoice
	}

	start := time.Now()
	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.model),
		Input:          text,
		Voice:          name,
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          speed(voice.Rate),
	})
	if err != nil {
		s.fail("api_error")
		return domain.Audio{}, parseAPIError(opSpeech, err, domain.ErrNarrationUnavailable)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		s.fail("read_error")
		return domain.Audio{}, fmt.Errorf("read speech: %w: %w", domain.ErrNarrationUnavailable, err)
	}
	if len(data) == 0 {
		s.fail("empty_response")
		return domain.Audio{}, fmt.Errorf("empty speech: %w", domain.ErrNarrationUnavailable)
	}

	metrics.LLMRequestsTotal.WithLabelValues(s.provider, opSpeech, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(s.provider, opSpeech).Observe(time.Since(start).Seconds())

	return domain.Audio{Data: data, ContentType: "audio/mpeg"}, nil
}

// HealthCheck verifies API availability via ListModels.
func (s *Synthesizer) HealthCheck(ctx context.Context) error {
	return healthCheck(ctx, s.client)
}

func (s *Synthesizer) fail(errType string) {
	metrics.LLMRequestsTotal.WithLabelValues(s.provider, opSpeech, "error").Inc()
	metrics.LLMErrorsTotal.WithLabelValues(s.provider, opSpeech, errType).Inc()
}

// speed maps a relative rate onto the API range [0.25, 4]. Zero keeps the default.
func speed(rate float64) float64 {
	if rate <= 0 {
		return 0
	}
	return min(max(rate, 0.25), 4)
}
