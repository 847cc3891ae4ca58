package domain

import "context"

// Translator is the shared translation contract between layers.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// Voice carries speech parameters. Rate, Pitch and Volume are relative to 1.0.
type Voice struct {
	Name   string
	Rate   float64
	Pitch  float64
	Volume float64
}

// Audio is an encoded speech clip.
type Audio struct {
	Data        []byte
	ContentType string
}

// Synthesizer turns text into speech. Speak blocks until the clip is ready or
// ctx is cancelled.
type Synthesizer interface {
	Speak(ctx context.Context, text string, voice Voice) (Audio, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
