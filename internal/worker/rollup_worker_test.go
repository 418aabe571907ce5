package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"voicebudget/internal/amqp"
	"voicebudget/internal/core"
	"voicebudget/internal/log"
)

type fakeRollupStore struct {
	expense      core.Expense
	users        []string
	getErr       error
	recomputeErr error
	usersErr     error
	recomputed   []string
}

func (f *fakeRollupStore) GetExpense(ctx context.Context, id, userID string) (core.Expense, error) {
	if f.getErr != nil {
		return core.Expense{}, f.getErr
	}
	return f.expense, nil
}

func (f *fakeRollupStore) RecomputeCategoryTotals(ctx context.Context, userID string) error {
	if f.recomputeErr != nil {
		return f.recomputeErr
	}
	f.recomputed = append(f.recomputed, userID)
	return nil
}

type fakeAudit struct {
	err      error
	appended []core.Expense
}

func (f *fakeAudit) AppendExpense(ctx context.Context, e core.Expense) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, e)
	return nil
}

func (f *fakeRollupStore) ListUserIDs(ctx context.Context) ([]string, error) {
	if f.usersErr != nil {
		return nil, f.usersErr
	}
	return f.users, nil
}

func testMessage() *amqp.ExpenseCreatedMessage {
	return amqp.NewExpenseCreatedMessage("exp-1", "user-1", "food", 1250)
}

func TestHandleExpenseCreated(t *testing.T) {
	store := &fakeRollupStore{expense: core.Expense{
		ID:       "exp-1",
		UserID:   "user-1",
		Amount:   core.Money{Cents: 1250},
		Category: core.CategoryFood,
		SpentAt:  time.Now(),
	}}
	audit := &fakeAudit{}
	w := NewRollupWorker(store, audit, time.Minute, log.New(log.DefaultConfig()))

	if err := w.HandleExpenseCreated(context.Background(), testMessage()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.recomputed) != 1 || store.recomputed[0] != "user-1" {
		t.Errorf("expected rollup recompute for user-1, got %v", store.recomputed)
	}
	if len(audit.appended) != 1 || audit.appended[0].ID != "exp-1" {
		t.Errorf("expected audit append of exp-1, got %v", audit.appended)
	}
}

func TestHandleExpenseCreatedRollupFailureRequeues(t *testing.T) {
	store := &fakeRollupStore{recomputeErr: errors.New("db locked")}
	w := NewRollupWorker(store, nil, time.Minute, log.New(log.DefaultConfig()))

	if err := w.HandleExpenseCreated(context.Background(), testMessage()); err == nil {
		t.Fatal("rollup failure should surface so the delivery is requeued")
	}
}

func TestHandleExpenseCreatedAuditFailureIsSwallowed(t *testing.T) {
	store := &fakeRollupStore{expense: core.Expense{ID: "exp-1", UserID: "user-1"}}
	audit := &fakeAudit{err: errors.New("sheets quota")}
	w := NewRollupWorker(store, audit, time.Minute, log.New(log.DefaultConfig()))

	if err := w.HandleExpenseCreated(context.Background(), testMessage()); err != nil {
		t.Fatalf("audit failure must not requeue the message: %v", err)
	}
}

func TestHandleExpenseCreatedWithoutAudit(t *testing.T) {
	store := &fakeRollupStore{}
	w := NewRollupWorker(store, nil, time.Minute, log.New(log.DefaultConfig()))

	if err := w.HandleExpenseCreated(context.Background(), testMessage()); err != nil {
		t.Fatalf("nil audit appender should be tolerated: %v", err)
	}
}

func TestRecomputeAllCoversEveryUser(t *testing.T) {
	// The sweep must not depend on which users the worker has already
	// processed; a fresh process still repairs everyone's rollups.
	store := &fakeRollupStore{users: []string{"user-1", "user-2"}}
	w := NewRollupWorker(store, nil, time.Minute, log.New(log.DefaultConfig()))

	w.recomputeAll(context.Background())
	if len(store.recomputed) != 2 || store.recomputed[0] != "user-1" || store.recomputed[1] != "user-2" {
		t.Errorf("expected recompute for all users, got %v", store.recomputed)
	}
}

func TestRecomputeAllToleratesListFailure(t *testing.T) {
	store := &fakeRollupStore{usersErr: errors.New("db locked")}
	w := NewRollupWorker(store, nil, time.Minute, log.New(log.DefaultConfig()))

	w.recomputeAll(context.Background())
	if len(store.recomputed) != 0 {
		t.Errorf("no recompute expected when the user list fails, got %v", store.recomputed)
	}
}

func TestHandleExpenseCreatedMissingExpenseSkipsAudit(t *testing.T) {
	store := &fakeRollupStore{getErr: errors.New("no rows")}
	audit := &fakeAudit{}
	w := NewRollupWorker(store, audit, time.Minute, log.New(log.DefaultConfig()))

	if err := w.HandleExpenseCreated(context.Background(), testMessage()); err != nil {
		t.Fatalf("missing expense should not fail the event: %v", err)
	}
	if len(audit.appended) != 0 {
		t.Error("nothing should be appended for a vanished expense")
	}
}
