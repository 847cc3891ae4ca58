package usage

import (
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	tests := map[string]struct {
		want Period
		ok   bool
	}{
		"":      {PeriodDay, true},
		"day":   {PeriodDay, true},
		"month": {PeriodMonth, true},
		"total": {"", false},
	}
	for in, tt := range tests {
		got, ok := ParsePeriod(in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParsePeriod(%q) = %q, %v", in, got, ok)
		}
	}
}

func TestPeriodBounds(t *testing.T) {
	now := time.Date(2026, 12, 31, 22, 15, 0, 0, time.UTC)

	start, end := PeriodDay.Bounds(now)
	if !start.Equal(time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("day bounds = %v .. %v", start, end)
	}

	start, end = PeriodMonth.Bounds(now)
	if !start.Equal(time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("month bounds = %v .. %v", start, end)
	}
}

func TestBudget_IsExhausted(t *testing.T) {
	if !NewBudget(100, 0, time.Time{}).IsExhausted() {
		t.Error("spent budget must be exhausted")
	}
	if NewBudget(0, -1, time.Time{}).IsExhausted() {
		t.Error("unlimited budget is never exhausted")
	}
	if NewBudget(100, 1, time.Time{}).IsExhausted() {
		t.Error("budget with tokens left is not exhausted")
	}
}
