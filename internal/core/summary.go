package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category Category
	Amount   Money
}

// BudgetUtilization pairs a budget with what was spent inside its current
// period window.
type BudgetUtilization struct {
	Budget Budget
	Spent  Money
}

// SpendingSummary is the compact dashboard view for one user.
type SpendingSummary struct {
	UserID     string
	TotalSpent Money
	ByCategory []CategoryAmount
	Budgets    []BudgetUtilization
}
