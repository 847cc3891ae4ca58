package usage

import (
	"context"
	"time"

	domusage "github.com/excellencecoachinghub/notesreader/internal/domain/usage"
)

// Service reports LLM token usage of one budget scope.
type Service struct {
	scope string
	br    BudgetReader
	now   func() time.Time
}

// New creates a Service. br can be nil (unlimited mode, nothing tracked).
func New(scope string, br BudgetReader) *Service {
	return &Service{scope: scope, br: br, now: time.Now}
}

// GetReport builds a usage report for the period containing now.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	start, end := period.Bounds(s.now())

	var limit, used int64
	remaining := int64(-1)
	if s.br != nil {
		if period == domusage.PeriodMonth {
			limit, used, remaining = s.br.MonthlyLimit(), s.br.MonthlyUsed(), s.br.RemainingMonthly()
		} else {
			limit, used, remaining = s.br.DailyLimit(), s.br.DailyUsed(), s.br.RemainingDaily()
		}
	}

	return domusage.NewReport(period, start, end, s.scope, used, domusage.NewBudget(limit, remaining, end))
}
