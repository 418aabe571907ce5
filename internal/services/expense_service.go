package services

import (
	"context"
	"fmt"

	"voicebudget/internal/amqp"
	"voicebudget/internal/core"
	"voicebudget/internal/log"
)

// ExpenseStore is the slice of the repository the expense service needs.
type ExpenseStore interface {
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, id, userID string) error
	FindBudgetByUserCategory(ctx context.Context, userID string, category core.Category) (*core.Budget, error)
}

// EventPublisher emits expense events for the rollup worker. nil-able: the
// app runs without a broker, just without async rollups.
type EventPublisher interface {
	PublishExpenseCreated(ctx context.Context, msg *amqp.ExpenseCreatedMessage) error
}

// SummaryInvalidator lets the service drop stale dashboard entries when
// spending changes.
type SummaryInvalidator interface {
	Invalidate(userID string)
}

// ExpenseService orchestrates expense writes across SQLite and AMQP.
type ExpenseService struct {
	store       ExpenseStore
	publisher   EventPublisher
	invalidator SummaryInvalidator
	log         *log.Logger
}

func NewExpenseService(store ExpenseStore, publisher EventPublisher, invalidator SummaryInvalidator, logger *log.Logger) *ExpenseService {
	return &ExpenseService{
		store:       store,
		publisher:   publisher,
		invalidator: invalidator,
		log:         logger.WithComponent(log.ComponentStorage),
	}
}

// PersistCandidate turns a validated candidate into a stored expense. The
// budget link is resolved by exact user+category match; no match stores a
// nil budget id. The transcript is attached verbatim.
func (s *ExpenseService) PersistCandidate(ctx context.Context, identity core.Identity, c core.ExpenseCandidate, transcript string) (core.Expense, error) {
	expense := core.Expense{
		UserID:        identity.ID,
		Amount:        c.Amount,
		Category:      c.Category,
		Description:   c.Description,
		Transcription: transcript,
		SpentAt:       c.Date,
	}
	return s.CreateExpense(ctx, expense)
}

// CreateExpense saves an expense locally and publishes the created event.
// Publish failures are logged, never surfaced: the expense is already safe
// in SQLite.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	budget, err := s.store.FindBudgetByUserCategory(ctx, e.UserID, e.Category)
	if err != nil {
		return core.Expense{}, fmt.Errorf("resolve budget: %w", err)
	}
	if budget != nil {
		id := budget.ID
		e.BudgetID = &id
	}

	saved, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(saved.UserID)
	}

	s.publishCreated(ctx, saved)
	return saved, nil
}

// UpdateExpense rewrites an expense's editable fields. The budget link is
// re-resolved because the category may have changed. No event is published;
// rollups are rebuilt by the worker's interval sweep.
func (s *ExpenseService) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}

	budget, err := s.store.FindBudgetByUserCategory(ctx, e.UserID, e.Category)
	if err != nil {
		return core.Expense{}, fmt.Errorf("resolve budget: %w", err)
	}
	e.BudgetID = nil
	if budget != nil {
		id := budget.ID
		e.BudgetID = &id
	}

	saved, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}

	if s.invalidator != nil {
		s.invalidator.Invalidate(saved.UserID)
	}
	return saved, nil
}

// DeleteExpense removes an expense and invalidates the user's summary.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id, userID string) error {
	if err := s.store.DeleteExpense(ctx, id, userID); err != nil {
		return err
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(userID)
	}
	return nil
}

func (s *ExpenseService) publishCreated(ctx context.Context, e core.Expense) {
	if s.publisher == nil {
		s.log.DebugContext(ctx, "no AMQP publisher configured, skipping event")
		return
	}
	msg := amqp.NewExpenseCreatedMessage(e.ID, e.UserID, string(e.Category), e.Amount.Cents)
	if err := s.publisher.PublishExpenseCreated(ctx, msg); err != nil {
		s.log.ErrorContext(ctx, "failed to publish expense created event",
			log.FieldError, err.Error(),
			log.FieldExpenseID, e.ID)
	}
}
