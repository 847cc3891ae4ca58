package usage

import "time"

// Period is the aggregation granularity of a report.
type Period string

// Aggregation periods.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod maps a query value to a Period. An empty value means a day.
func ParsePeriod(s string) (Period, bool) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, true
	case PeriodMonth:
		return PeriodMonth, true
	default:
		return "", false
	}
}

// Bounds returns the UTC start and end of the period containing now.
func (p Period) Bounds(now time.Time) (start, end time.Time) {
	now = now.UTC()
	if p == PeriodMonth {
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0)
	}
	start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// Budget is the token budget state of one period. A zero limit is unlimited
// and reports -1 remaining.
type Budget struct {
	limit     int64
	remaining int64
	resetsAt  time.Time
}

// NewBudget creates a Budget snapshot.
func NewBudget(limit, remaining int64, resetsAt time.Time) Budget {
	return Budget{limit: limit, remaining: remaining, resetsAt: resetsAt}
}

// TokensLimit returns the token cap.
func (b Budget) TokensLimit() int64 { return b.limit }

// TokensRemaining returns tokens left.
func (b Budget) TokensRemaining() int64 { return b.remaining }

// IsExhausted reports whether a limited budget is spent.
func (b Budget) IsExhausted() bool { return b.limit > 0 && b.remaining <= 0 }

// ResetsAt returns when the counter starts over.
func (b Budget) ResetsAt() time.Time { return b.resetsAt }

// Report is the LLM token usage of one budget scope over a period.
type Report struct {
	period     Period
	start      time.Time
	end        time.Time
	scope      string
	tokensUsed int64
	budget     Budget
}

// NewReport creates a usage report.
func NewReport(period Period, start, end time.Time, scope string, tokensUsed int64, b Budget) Report {
	return Report{
		period:     period,
		start:      start,
		end:        end,
		scope:      scope,
		tokensUsed: tokensUsed,
		budget:     b,
	}
}

func (r *Report) Period() Period         { return r.period }
func (r *Report) PeriodStart() time.Time { return r.start }
func (r *Report) PeriodEnd() time.Time   { return r.end }
func (r *Report) Scope() string          { return r.scope }
func (r *Report) TokensUsed() int64      { return r.tokensUsed }
func (r *Report) Budget() Budget         { return r.budget }
