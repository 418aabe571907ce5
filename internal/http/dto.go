package http

import (
	"time"

	"voicebudget/internal/core"
)

type expenseDTO struct {
	ID            string  `json:"id"`
	UserID        string  `json:"user_id"`
	BudgetID      *string `json:"budget_id"`
	AmountCents   int64   `json:"amount_cents"`
	Amount        float64 `json:"amount"`
	Category      string  `json:"category"`
	Description   string  `json:"description"`
	Transcription string  `json:"transcription,omitempty"`
	SpentAt       string  `json:"spent_at"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

type candidateDTO struct {
	AmountCents int64   `json:"amount_cents"`
	Amount      float64 `json:"amount"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Date        string  `json:"date,omitempty"`
}

type budgetDTO struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	Category    string  `json:"category"`
	AmountCents int64   `json:"amount_cents"`
	Amount      float64 `json:"amount"`
	Period      string  `json:"period"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

type categoryAmountDTO struct {
	Category    string  `json:"category"`
	AmountCents int64   `json:"amount_cents"`
	Amount      float64 `json:"amount"`
}

type budgetUtilizationDTO struct {
	Budget         budgetDTO `json:"budget"`
	SpentCents     int64     `json:"spent_cents"`
	RemainingCents int64     `json:"remaining_cents"`
}

type summaryDTO struct {
	UserID          string                 `json:"user_id"`
	TotalSpentCents int64                  `json:"total_spent_cents"`
	TotalSpent      float64                `json:"total_spent"`
	ByCategory      []categoryAmountDTO    `json:"by_category"`
	Budgets         []budgetUtilizationDTO `json:"budgets"`
}

func expenseToDTO(e core.Expense) expenseDTO {
	dto := expenseDTO{
		ID:            e.ID,
		UserID:        e.UserID,
		BudgetID:      e.BudgetID,
		AmountCents:   e.Amount.Cents,
		Amount:        e.Amount.Dollars(),
		Category:      string(e.Category),
		Description:   e.Description,
		Transcription: e.Transcription,
		SpentAt:       e.SpentAt.Format(time.RFC3339),
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func candidateToDTO(c core.ExpenseCandidate) candidateDTO {
	dto := candidateDTO{
		AmountCents: c.Amount.Cents,
		Amount:      c.Amount.Dollars(),
		Category:    string(c.Category),
		Description: c.Description,
	}
	if !c.Date.IsZero() {
		dto.Date = c.Date.Format("2006-01-02")
	}
	return dto
}

func budgetToDTO(b core.Budget) budgetDTO {
	dto := budgetDTO{
		ID:          b.ID,
		UserID:      b.UserID,
		Category:    string(b.Category),
		AmountCents: b.Amount.Cents,
		Amount:      b.Amount.Dollars(),
		Period:      string(b.Period),
	}
	if !b.CreatedAt.IsZero() {
		dto.CreatedAt = b.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func summaryToDTO(s core.SpendingSummary) summaryDTO {
	dto := summaryDTO{
		UserID:          s.UserID,
		TotalSpentCents: s.TotalSpent.Cents,
		TotalSpent:      s.TotalSpent.Dollars(),
		ByCategory:      make([]categoryAmountDTO, 0, len(s.ByCategory)),
		Budgets:         make([]budgetUtilizationDTO, 0, len(s.Budgets)),
	}
	for _, ca := range s.ByCategory {
		dto.ByCategory = append(dto.ByCategory, categoryAmountDTO{
			Category:    string(ca.Category),
			AmountCents: ca.Amount.Cents,
			Amount:      ca.Amount.Dollars(),
		})
	}
	for _, bu := range s.Budgets {
		dto.Budgets = append(dto.Budgets, budgetUtilizationDTO{
			Budget:         budgetToDTO(bu.Budget),
			SpentCents:     bu.Spent.Cents,
			RemainingCents: bu.Budget.Amount.Cents - bu.Spent.Cents,
		})
	}
	return dto
}
