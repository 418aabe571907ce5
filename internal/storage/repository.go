package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"voicebudget/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row does not exist or belongs to another
// user. Callers never learn which.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateUser inserts a user with a fresh API token. Used by the seed
// command and tests.
func (r *SQLiteRepository) CreateUser(ctx context.Context, email, name string) (core.Identity, string, error) {
	id := uuid.New().String()
	token := uuid.New().String()
	err := r.queries.CreateUser(ctx, CreateUserParams{
		ID:       id,
		Email:    email,
		Name:     name,
		APIToken: token,
	})
	if err != nil {
		return core.Identity{}, "", fmt.Errorf("create user: %w", err)
	}
	return core.Identity{ID: id, Email: email}, token, nil
}

// GetUserByToken resolves an API token to an identity.
func (r *SQLiteRepository) GetUserByToken(ctx context.Context, token string) (core.Identity, error) {
	u, err := r.queries.GetUserByToken(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Identity{}, ErrNotFound
	}
	if err != nil {
		return core.Identity{}, fmt.Errorf("get user by token: %w", err)
	}
	return core.Identity{ID: u.ID, Email: u.Email}, nil
}

// CreateExpense persists the expense and returns it with generated fields
// filled in. The transcription is stored verbatim.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	var budgetID sql.NullString
	if e.BudgetID != nil {
		budgetID = sql.NullString{String: *e.BudgetID, Valid: true}
	}
	row, err := r.queries.CreateExpense(ctx, CreateExpenseParams{
		ID:            e.ID,
		UserID:        e.UserID,
		BudgetID:      budgetID,
		AmountCents:   e.Amount.Cents,
		Category:      string(e.Category),
		Description:   e.Description,
		Transcription: e.Transcription,
		SpentAt:       e.SpentAt,
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return expenseFromRow(row), nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id, userID string) (core.Expense, error) {
	row, err := r.queries.GetExpense(ctx, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return expenseFromRow(row), nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, userID string, limit, offset int64) ([]core.Expense, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.queries.ListExpenses(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, len(rows))
	for i, row := range rows {
		out[i] = expenseFromRow(row)
	}
	return out, nil
}

// UpdateExpense rewrites the editable fields of an expense and returns the
// stored row. The transcription is never touched by updates.
func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	var budgetID sql.NullString
	if e.BudgetID != nil {
		budgetID = sql.NullString{String: *e.BudgetID, Valid: true}
	}
	n, err := r.queries.UpdateExpense(ctx, UpdateExpenseParams{
		ID:          e.ID,
		UserID:      e.UserID,
		BudgetID:    budgetID,
		AmountCents: e.Amount.Cents,
		Category:    string(e.Category),
		Description: e.Description,
		SpentAt:     e.SpentAt,
	})
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	if n == 0 {
		return core.Expense{}, ErrNotFound
	}
	return r.GetExpense(ctx, e.ID, e.UserID)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id, userID string) error {
	n, err := r.queries.DeleteExpense(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FindBudgetByUserCategory returns the user's budget for the category, or
// (nil, nil) when none exists. Absence is a normal state, not an error.
func (r *SQLiteRepository) FindBudgetByUserCategory(ctx context.Context, userID string, category core.Category) (*core.Budget, error) {
	row, err := r.queries.FindBudgetByUserCategory(ctx, userID, string(category))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find budget: %w", err)
	}
	b := budgetFromRow(row)
	return &b, nil
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	row, err := r.queries.CreateBudget(ctx, CreateBudgetParams{
		ID:          b.ID,
		UserID:      b.UserID,
		Category:    string(b.Category),
		AmountCents: b.Amount.Cents,
		Period:      string(b.Period),
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return budgetFromRow(row), nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, id, userID string, amount core.Money, period core.BudgetPeriod) error {
	n, err := r.queries.UpdateBudget(ctx, id, userID, amount.Cents, string(period))
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id, userID string) error {
	n, err := r.queries.DeleteBudget(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := r.queries.ListBudgets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	out := make([]core.Budget, len(rows))
	for i, row := range rows {
		out[i] = budgetFromRow(row)
	}
	return out, nil
}

// SumByCategory aggregates spending per category within [from, to).
func (r *SQLiteRepository) SumByCategory(ctx context.Context, userID string, from, to time.Time) ([]core.CategoryAmount, error) {
	sums, err := r.queries.SumByCategory(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("sum by category: %w", err)
	}
	out := make([]core.CategoryAmount, len(sums))
	for i, s := range sums {
		out[i] = core.CategoryAmount{
			Category: core.Category(s.Category),
			Amount:   core.Money{Cents: s.TotalCents},
		}
	}
	return out, nil
}

// RecomputeCategoryTotals rebuilds the rollup table for one user from the
// expenses table. Idempotent, including against deletions: rows for
// categories with no remaining expenses are cleared, not left stale.
func (r *SQLiteRepository) RecomputeCategoryTotals(ctx context.Context, userID string) error {
	epoch := time.Unix(0, 0).UTC()
	horizon := time.Now().UTC().Add(24 * time.Hour)
	sums, err := r.queries.SumByCategory(ctx, userID, epoch, horizon)
	if err != nil {
		return fmt.Errorf("recompute totals: %w", err)
	}
	if err := r.queries.DeleteCategoryTotals(ctx, userID); err != nil {
		return fmt.Errorf("clear totals: %w", err)
	}
	for _, s := range sums {
		if err := r.queries.UpsertCategoryTotal(ctx, userID, s.Category, s.TotalCents, s.ExpenseCount); err != nil {
			return fmt.Errorf("upsert total for %s: %w", s.Category, err)
		}
	}
	return nil
}

// ListUserIDs returns every user id. The worker's interval sweep uses it
// so rollups are repaired even across restarts.
func (r *SQLiteRepository) ListUserIDs(ctx context.Context) ([]string, error) {
	ids, err := r.queries.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return ids, nil
}

func (r *SQLiteRepository) GetCategoryTotals(ctx context.Context, userID string) ([]core.CategoryAmount, error) {
	rows, err := r.queries.GetCategoryTotals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get category totals: %w", err)
	}
	out := make([]core.CategoryAmount, len(rows))
	for i, t := range rows {
		out[i] = core.CategoryAmount{
			Category: core.Category(t.Category),
			Amount:   core.Money{Cents: t.TotalCents},
		}
	}
	return out, nil
}

func expenseFromRow(row ExpenseRow) core.Expense {
	e := core.Expense{
		ID:            row.ID,
		UserID:        row.UserID,
		Amount:        core.Money{Cents: row.AmountCents},
		Category:      core.Category(row.Category),
		Description:   row.Description,
		Transcription: row.Transcription,
		SpentAt:       row.SpentAt,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
	if row.BudgetID.Valid {
		id := row.BudgetID.String
		e.BudgetID = &id
	}
	return e
}

func budgetFromRow(row BudgetRow) core.Budget {
	return core.Budget{
		ID:        row.ID,
		UserID:    row.UserID,
		Category:  core.Category(row.Category),
		Amount:    core.Money{Cents: row.AmountCents},
		Period:    core.BudgetPeriod(row.Period),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
