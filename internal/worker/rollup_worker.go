package worker

import (
	"context"
	"fmt"
	"time"

	"voicebudget/internal/amqp"
	"voicebudget/internal/core"
	"voicebudget/internal/log"
)

// RollupStore is the repository slice the worker needs.
type RollupStore interface {
	GetExpense(ctx context.Context, id, userID string) (core.Expense, error)
	RecomputeCategoryTotals(ctx context.Context, userID string) error
	ListUserIDs(ctx context.Context) ([]string, error)
}

// AuditAppender mirrors expenses into the audit sheet. Optional.
type AuditAppender interface {
	AppendExpense(ctx context.Context, e core.Expense) error
}

// RollupWorker consumes expense created events, rebuilds the per-category
// rollup table for the affected user, and mirrors the expense into the
// audit sheet when one is configured. The interval sweep re-rolls every
// user, so rollups converge even for mutations that carry no event
// (updates, deletes) and across worker restarts.
type RollupWorker struct {
	store    RollupStore
	audit    AuditAppender
	interval time.Duration
	log      *log.Logger
}

func NewRollupWorker(store RollupStore, audit AuditAppender, interval time.Duration, logger *log.Logger) *RollupWorker {
	return &RollupWorker{
		store:    store,
		audit:    audit,
		interval: interval,
		log:      logger.WithComponent(log.ComponentWorker),
	}
}

// HandleExpenseCreated processes one event. Rollup failure returns an
// error so the delivery is requeued; audit failure only logs, the sheet is
// best-effort.
func (w *RollupWorker) HandleExpenseCreated(ctx context.Context, msg *amqp.ExpenseCreatedMessage) error {
	w.log.InfoContext(ctx, "processing expense created event",
		log.FieldExpenseID, msg.ExpenseID,
		log.FieldUserID, msg.UserID,
		log.FieldCategory, msg.Category,
		log.FieldAmountCents, msg.AmountCents)

	if err := w.store.RecomputeCategoryTotals(ctx, msg.UserID); err != nil {
		return fmt.Errorf("recompute rollups: %w", err)
	}

	if w.audit != nil {
		expense, err := w.store.GetExpense(ctx, msg.ExpenseID, msg.UserID)
		if err != nil {
			w.log.ErrorContext(ctx, "expense vanished before audit export",
				log.FieldExpenseID, msg.ExpenseID,
				log.FieldError, err.Error())
			return nil
		}
		if err := w.audit.AppendExpense(ctx, expense); err != nil {
			w.log.ErrorContext(ctx, "audit sheet append failed",
				log.FieldExpenseID, msg.ExpenseID,
				log.FieldError, err.Error())
		}
	}

	return nil
}

// Run consumes events until ctx ends. consume is typically
// amqp.Client.ConsumeExpenseCreated; it blocks, so the interval sweep runs
// in its own goroutine.
func (w *RollupWorker) Run(ctx context.Context, consume func(context.Context, func(*amqp.ExpenseCreatedMessage) error) error) error {
	go w.sweep(ctx)

	return consume(ctx, func(msg *amqp.ExpenseCreatedMessage) error {
		return w.HandleExpenseCreated(ctx, msg)
	})
}

func (w *RollupWorker) sweep(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.recomputeAll(ctx)
		}
	}
}

// recomputeAll re-rolls every known user. One user failing does not stop
// the sweep.
func (w *RollupWorker) recomputeAll(ctx context.Context) {
	users, err := w.store.ListUserIDs(ctx)
	if err != nil {
		w.log.ErrorContext(ctx, "listing users for rollup sweep failed",
			log.FieldError, err.Error())
		return
	}
	for _, userID := range users {
		if err := w.store.RecomputeCategoryTotals(ctx, userID); err != nil {
			w.log.ErrorContext(ctx, "interval rollup failed",
				log.FieldUserID, userID,
				log.FieldError, err.Error())
		}
	}
}
