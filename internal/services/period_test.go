package services

import (
	"testing"
	"time"

	"voicebudget/internal/core"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 15, 4, 5, 0, time.UTC)
}

func TestWeeklyWindow(t *testing.T) {
	// 2026-09-01 is a Tuesday; the week runs Mon Aug 31 .. Mon Sep 7.
	start, end := WeeklyResolver{}.Window(date(2026, time.September, 1))
	if start.Day() != 31 || start.Month() != time.August {
		t.Errorf("expected week start Aug 31, got %v", start)
	}
	if end.Day() != 7 || end.Month() != time.September {
		t.Errorf("expected week end Sep 7, got %v", end)
	}

	// A Monday starts its own week.
	start, _ = WeeklyResolver{}.Window(date(2026, time.September, 7))
	if start.Day() != 7 {
		t.Errorf("Monday should start its own week, got %v", start)
	}

	// A Sunday belongs to the week started the previous Monday.
	start, _ = WeeklyResolver{}.Window(date(2026, time.September, 6))
	if start.Day() != 31 || start.Month() != time.August {
		t.Errorf("Sunday should belong to the week of Aug 31, got %v", start)
	}
}

func TestMonthlyWindow(t *testing.T) {
	start, end := MonthlyResolver{}.Window(date(2026, time.September, 15))
	if !start.Equal(time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected month start %v", start)
	}
	if !end.Equal(time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected month end %v", end)
	}

	// December rolls into January of the next year.
	_, end = MonthlyResolver{}.Window(date(2026, time.December, 31))
	if !end.Equal(time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("December window should end in January 2027, got %v", end)
	}
}

func TestYearlyWindow(t *testing.T) {
	start, end := YearlyResolver{}.Window(date(2026, time.June, 10))
	if !start.Equal(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected year start %v", start)
	}
	if !end.Equal(time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected year end %v", end)
	}
}

func TestGetWindowResolver(t *testing.T) {
	for _, p := range []core.BudgetPeriod{core.Weekly, core.Monthly, core.Yearly} {
		if _, err := GetWindowResolver(p); err != nil {
			t.Errorf("resolver for %s: %v", p, err)
		}
	}
	if _, err := GetWindowResolver(core.BudgetPeriod("DAILY")); err == nil {
		t.Error("expected error for unknown period")
	}
}
