package services

import (
	"context"
	"testing"
	"time"

	"voicebudget/internal/cache"
	"voicebudget/internal/core"
	"voicebudget/internal/log"
)

type fakeSummaryStore struct {
	sums    []core.CategoryAmount
	budgets []core.Budget
	calls   int
}

func (f *fakeSummaryStore) SumByCategory(ctx context.Context, userID string, from, to time.Time) ([]core.CategoryAmount, error) {
	f.calls++
	return f.sums, nil
}

func (f *fakeSummaryStore) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	return f.budgets, nil
}

func TestSummaryTotalsAndBudgets(t *testing.T) {
	store := &fakeSummaryStore{
		sums: []core.CategoryAmount{
			{Category: core.CategoryFood, Amount: core.Money{Cents: 2000}},
			{Category: core.CategoryTransportation, Amount: core.Money{Cents: 5000}},
		},
		budgets: []core.Budget{
			{ID: "b1", UserID: "user-1", Category: core.CategoryFood, Amount: core.Money{Cents: 50000}, Period: core.Monthly},
		},
	}
	svc := NewSummaryService(store, nil, log.New(log.DefaultConfig()))

	summary, err := svc.Summary(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalSpent.Cents != 7000 {
		t.Errorf("expected total 7000, got %d", summary.TotalSpent.Cents)
	}
	if len(summary.Budgets) != 1 {
		t.Fatalf("expected 1 budget utilization, got %d", len(summary.Budgets))
	}
	if summary.Budgets[0].Spent.Cents != 2000 {
		t.Errorf("expected food budget spend 2000, got %d", summary.Budgets[0].Spent.Cents)
	}
}

func TestSummaryCaching(t *testing.T) {
	store := &fakeSummaryStore{
		sums: []core.CategoryAmount{
			{Category: core.CategoryFood, Amount: core.Money{Cents: 1000}},
		},
	}
	c := cache.NewLRUCache[core.SpendingSummary](10, time.Minute)
	svc := NewSummaryService(store, c, log.New(log.DefaultConfig()))
	ctx := context.Background()

	if _, err := svc.Summary(ctx, "user-1"); err != nil {
		t.Fatalf("first summary: %v", err)
	}
	first := store.calls

	if _, err := svc.Summary(ctx, "user-1"); err != nil {
		t.Fatalf("second summary: %v", err)
	}
	if store.calls != first {
		t.Errorf("second read should hit the cache, store calls went %d -> %d", first, store.calls)
	}

	svc.Invalidate("user-1")
	if _, err := svc.Summary(ctx, "user-1"); err != nil {
		t.Fatalf("post-invalidate summary: %v", err)
	}
	if store.calls == first {
		t.Error("invalidate should force a store read")
	}
}
