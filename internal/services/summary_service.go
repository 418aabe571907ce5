package services

import (
	"context"
	"fmt"
	"time"

	"voicebudget/internal/cache"
	"voicebudget/internal/core"
	"voicebudget/internal/log"
)

// SummaryStore is the read side the dashboard needs.
type SummaryStore interface {
	SumByCategory(ctx context.Context, userID string, from, to time.Time) ([]core.CategoryAmount, error)
	ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
}

// SummaryService builds the dashboard spending summary: month-to-date
// totals per category plus utilization of each budget over its own period
// window. Results are cached per user until spending changes or the TTL
// runs out.
type SummaryService struct {
	store SummaryStore
	cache *cache.LRUCache[core.SpendingSummary]
	now   func() time.Time
	log   *log.Logger
}

func NewSummaryService(store SummaryStore, c *cache.LRUCache[core.SpendingSummary], logger *log.Logger) *SummaryService {
	return &SummaryService{
		store: store,
		cache: c,
		now:   time.Now,
		log:   logger.WithComponent(log.ComponentCache),
	}
}

// Invalidate drops the cached summary for a user. Called by the expense
// service whenever spending changes.
func (s *SummaryService) Invalidate(userID string) {
	if s.cache != nil {
		s.cache.Delete(userID)
	}
}

func (s *SummaryService) Summary(ctx context.Context, userID string) (core.SpendingSummary, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(userID); ok {
			return cached, nil
		}
	}

	now := s.now()
	monthStart, monthEnd := MonthlyResolver{}.Window(now)

	byCategory, err := s.store.SumByCategory(ctx, userID, monthStart, monthEnd)
	if err != nil {
		return core.SpendingSummary{}, fmt.Errorf("month totals: %w", err)
	}

	summary := core.SpendingSummary{
		UserID:     userID,
		ByCategory: byCategory,
	}
	for _, ca := range byCategory {
		summary.TotalSpent.Cents += ca.Amount.Cents
	}

	budgets, err := s.store.ListBudgets(ctx, userID)
	if err != nil {
		return core.SpendingSummary{}, fmt.Errorf("list budgets: %w", err)
	}
	for _, b := range budgets {
		resolver, err := GetWindowResolver(b.Period)
		if err != nil {
			return core.SpendingSummary{}, err
		}
		from, to := resolver.Window(now)
		sums, err := s.store.SumByCategory(ctx, userID, from, to)
		if err != nil {
			return core.SpendingSummary{}, fmt.Errorf("budget window totals: %w", err)
		}
		var spent core.Money
		for _, ca := range sums {
			if ca.Category == b.Category {
				spent = ca.Amount
				break
			}
		}
		summary.Budgets = append(summary.Budgets, core.BudgetUtilization{
			Budget: b,
			Spent:  spent,
		})
	}

	if s.cache != nil {
		s.cache.Set(userID, summary)
	}
	return summary, nil
}
