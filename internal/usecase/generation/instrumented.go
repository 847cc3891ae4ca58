package generation

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/excellencecoachinghub/notesreader/internal/domain/quiz"
	"github.com/excellencecoachinghub/notesreader/internal/metrics"
)

// BudgetChecker is the budget surface the generator decorator needs.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// InstrumentedGenerator wraps a quiz.Generator with budget enforcement and
// logging. Request metrics live in the transport layer.
type InstrumentedGenerator struct {
	inner    quiz.Generator
	provider string
	model    string
	budget   BudgetChecker
	logger   *zap.Logger
}

// NewInstrumentedGenerator wraps inner. budget may be nil.
func NewInstrumentedGenerator(
	inner quiz.Generator, provider, model string,
	budget BudgetChecker, logger *zap.Logger,
) *InstrumentedGenerator {
	return &InstrumentedGenerator{
		inner:    inner,
		provider: provider,
		model:    model,
		budget:   budget,
		logger:   logger,
	}
}

// Generate checks the budget, delegates to the inner generator and records usage.
func (g *InstrumentedGenerator) Generate(ctx context.Context, req quiz.Request) (quiz.Generation, error) {
	if g.budget != nil {
		if err := g.budget.Check(ctx); err != nil {
			g.logger.Error("Budget exceeded",
				zap.String("provider", g.provider),
				zap.String("model", g.model),
				zap.Error(err),
			)
			return quiz.Generation{}, fmt.Errorf("budget check: %w", err)
		}
	}

	start := time.Now()
	res, err := g.inner.Generate(ctx, req)
	duration := time.Since(start)
	if err != nil {
		g.logger.Error("Quiz generation request failed",
			zap.String("provider", g.provider),
			zap.String("model", g.model),
			zap.String("topic", req.Topic),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return quiz.Generation{}, fmt.Errorf("generate: %w", err)
	}

	if g.budget != nil && res.TotalTokens > 0 {
		g.budget.Record(int64(res.TotalTokens))
		gauge := metrics.LLMBudgetTokensRemaining
		gauge.WithLabelValues(g.provider, "daily").Set(float64(g.budget.RemainingDaily()))
		gauge.WithLabelValues(g.provider, "monthly").Set(float64(g.budget.RemainingMonthly()))
	}

	g.logger.Debug("Quiz generation completed",
		zap.String("provider", g.provider),
		zap.String("model", g.model),
		zap.String("topic", req.Topic),
		zap.Duration("duration", duration),
		zap.Int("questions", len(res.Questions)),
		zap.Int("prompt_tokens", res.PromptTokens),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return res, nil
}
