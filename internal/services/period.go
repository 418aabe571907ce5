package services

import (
	"fmt"
	"time"

	"voicebudget/internal/core"
)

// WindowResolver is the strategy interface for turning a budget period into
// a concrete time window. Each period type encapsulates its own calendar
// arithmetic.
type WindowResolver interface {
	// Window returns [start, end) of the period containing now.
	Window(now time.Time) (start, end time.Time)
}

// WeeklyResolver resolves to the ISO week: Monday 00:00 through next Monday.
type WeeklyResolver struct{}

func (WeeklyResolver) Window(now time.Time) (time.Time, time.Time) {
	daysSinceMonday := (int(now.Weekday()) + 6) % 7
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
		AddDate(0, 0, -daysSinceMonday)
	return start, start.AddDate(0, 0, 7)
}

// MonthlyResolver resolves to the calendar month.
type MonthlyResolver struct{}

func (MonthlyResolver) Window(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 1, 0)
}

// YearlyResolver resolves to the calendar year.
type YearlyResolver struct{}

func (YearlyResolver) Window(now time.Time) (time.Time, time.Time) {
	start := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	return start, start.AddDate(1, 0, 0)
}

var windowResolvers = map[core.BudgetPeriod]WindowResolver{
	core.Weekly:  WeeklyResolver{},
	core.Monthly: MonthlyResolver{},
	core.Yearly:  YearlyResolver{},
}

// GetWindowResolver returns the resolver for a budget period.
func GetWindowResolver(period core.BudgetPeriod) (WindowResolver, error) {
	r, ok := windowResolvers[period]
	if !ok {
		return nil, fmt.Errorf("unknown budget period: %s", period)
	}
	return r, nil
}
