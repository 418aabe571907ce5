package storage

import (
	"context"
	"database/sql"
	"time"
)

// Queries holds the prepared-statement free query layer. All timestamps are
// stored and read as UTC.
type Queries struct {
	db *sql.DB
}

func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

type UserRow struct {
	ID        string
	Email     string
	Name      string
	APIToken  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type BudgetRow struct {
	ID          string
	UserID      string
	Category    string
	AmountCents int64
	Period      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ExpenseRow struct {
	ID            string
	UserID        string
	BudgetID      sql.NullString
	AmountCents   int64
	Category      string
	Description   string
	Transcription string
	SpentAt       time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type CategoryTotalRow struct {
	UserID       string
	Category     string
	TotalCents   int64
	ExpenseCount int64
	UpdatedAt    time.Time
}

const createUser = `
INSERT INTO users (id, email, name, api_token, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`

type CreateUserParams struct {
	ID       string
	Email    string
	Name     string
	APIToken string
}

func (q *Queries) CreateUser(ctx context.Context, p CreateUserParams) error {
	now := time.Now().UTC()
	_, err := q.db.ExecContext(ctx, createUser, p.ID, p.Email, p.Name, p.APIToken, now, now)
	return err
}

const getUserByToken = `
SELECT id, email, name, api_token, created_at, updated_at
FROM users WHERE api_token = ?
`

func (q *Queries) GetUserByToken(ctx context.Context, token string) (UserRow, error) {
	var u UserRow
	err := q.db.QueryRowContext(ctx, getUserByToken, token).
		Scan(&u.ID, &u.Email, &u.Name, &u.APIToken, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

const createExpense = `
INSERT INTO expenses (id, user_id, budget_id, amount_cents, category, description, transcription, spent_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateExpenseParams struct {
	ID            string
	UserID        string
	BudgetID      sql.NullString
	AmountCents   int64
	Category      string
	Description   string
	Transcription string
	SpentAt       time.Time
}

func (q *Queries) CreateExpense(ctx context.Context, p CreateExpenseParams) (ExpenseRow, error) {
	now := time.Now().UTC()
	_, err := q.db.ExecContext(ctx, createExpense,
		p.ID, p.UserID, p.BudgetID, p.AmountCents, p.Category,
		p.Description, p.Transcription, p.SpentAt.UTC(), now, now)
	if err != nil {
		return ExpenseRow{}, err
	}
	return ExpenseRow{
		ID:            p.ID,
		UserID:        p.UserID,
		BudgetID:      p.BudgetID,
		AmountCents:   p.AmountCents,
		Category:      p.Category,
		Description:   p.Description,
		Transcription: p.Transcription,
		SpentAt:       p.SpentAt.UTC(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

const getExpense = `
SELECT id, user_id, budget_id, amount_cents, category, description, transcription, spent_at, created_at, updated_at
FROM expenses WHERE id = ? AND user_id = ?
`

func (q *Queries) GetExpense(ctx context.Context, id, userID string) (ExpenseRow, error) {
	var e ExpenseRow
	err := q.db.QueryRowContext(ctx, getExpense, id, userID).Scan(
		&e.ID, &e.UserID, &e.BudgetID, &e.AmountCents, &e.Category,
		&e.Description, &e.Transcription, &e.SpentAt, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

const listExpenses = `
SELECT id, user_id, budget_id, amount_cents, category, description, transcription, spent_at, created_at, updated_at
FROM expenses WHERE user_id = ?
ORDER BY spent_at DESC, created_at DESC
LIMIT ? OFFSET ?
`

func (q *Queries) ListExpenses(ctx context.Context, userID string, limit, offset int64) ([]ExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExpenseRow
	for rows.Next() {
		var e ExpenseRow
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.BudgetID, &e.AmountCents, &e.Category,
			&e.Description, &e.Transcription, &e.SpentAt, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

const updateExpense = `
UPDATE expenses SET budget_id = ?, amount_cents = ?, category = ?, description = ?, spent_at = ?, updated_at = ?
WHERE id = ? AND user_id = ?
`

type UpdateExpenseParams struct {
	ID          string
	UserID      string
	BudgetID    sql.NullString
	AmountCents int64
	Category    string
	Description string
	SpentAt     time.Time
}

// UpdateExpense rewrites the editable fields. The transcription is
// immutable; it documents what produced the original record.
func (q *Queries) UpdateExpense(ctx context.Context, p UpdateExpenseParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateExpense,
		p.BudgetID, p.AmountCents, p.Category, p.Description,
		p.SpentAt.UTC(), time.Now().UTC(), p.ID, p.UserID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteExpense = `DELETE FROM expenses WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const findBudgetByUserCategory = `
SELECT id, user_id, category, amount_cents, period, created_at, updated_at
FROM budgets WHERE user_id = ? AND category = ?
`

func (q *Queries) FindBudgetByUserCategory(ctx context.Context, userID, category string) (BudgetRow, error) {
	var b BudgetRow
	err := q.db.QueryRowContext(ctx, findBudgetByUserCategory, userID, category).Scan(
		&b.ID, &b.UserID, &b.Category, &b.AmountCents, &b.Period, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

const createBudget = `
INSERT INTO budgets (id, user_id, category, amount_cents, period, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreateBudgetParams struct {
	ID          string
	UserID      string
	Category    string
	AmountCents int64
	Period      string
}

func (q *Queries) CreateBudget(ctx context.Context, p CreateBudgetParams) (BudgetRow, error) {
	now := time.Now().UTC()
	_, err := q.db.ExecContext(ctx, createBudget,
		p.ID, p.UserID, p.Category, p.AmountCents, p.Period, now, now)
	if err != nil {
		return BudgetRow{}, err
	}
	return BudgetRow{
		ID: p.ID, UserID: p.UserID, Category: p.Category,
		AmountCents: p.AmountCents, Period: p.Period,
		CreatedAt: now, UpdatedAt: now,
	}, nil
}

const updateBudget = `
UPDATE budgets SET amount_cents = ?, period = ?, updated_at = ?
WHERE id = ? AND user_id = ?
`

func (q *Queries) UpdateBudget(ctx context.Context, id, userID string, amountCents int64, period string) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateBudget, amountCents, period, time.Now().UTC(), id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteBudget = `DELETE FROM budgets WHERE id = ? AND user_id = ?`

func (q *Queries) DeleteBudget(ctx context.Context, id, userID string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteBudget, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listBudgets = `
SELECT id, user_id, category, amount_cents, period, created_at, updated_at
FROM budgets WHERE user_id = ?
ORDER BY category
`

func (q *Queries) ListBudgets(ctx context.Context, userID string) ([]BudgetRow, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BudgetRow
	for rows.Next() {
		var b BudgetRow
		if err := rows.Scan(&b.ID, &b.UserID, &b.Category, &b.AmountCents, &b.Period, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

const sumByCategory = `
SELECT category, COALESCE(SUM(amount_cents), 0), COUNT(*)
FROM expenses
WHERE user_id = ? AND spent_at >= ? AND spent_at < ?
GROUP BY category
ORDER BY category
`

type CategorySum struct {
	Category     string
	TotalCents   int64
	ExpenseCount int64
}

func (q *Queries) SumByCategory(ctx context.Context, userID string, from, to time.Time) ([]CategorySum, error) {
	rows, err := q.db.QueryContext(ctx, sumByCategory, userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CategorySum
	for rows.Next() {
		var s CategorySum
		if err := rows.Scan(&s.Category, &s.TotalCents, &s.ExpenseCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

const upsertCategoryTotal = `
INSERT INTO category_totals (user_id, category, total_cents, expense_count, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id, category) DO UPDATE SET
    total_cents = excluded.total_cents,
    expense_count = excluded.expense_count,
    updated_at = excluded.updated_at
`

func (q *Queries) UpsertCategoryTotal(ctx context.Context, userID, category string, totalCents, count int64) error {
	_, err := q.db.ExecContext(ctx, upsertCategoryTotal, userID, category, totalCents, count, time.Now().UTC())
	return err
}

const deleteCategoryTotals = `DELETE FROM category_totals WHERE user_id = ?`

func (q *Queries) DeleteCategoryTotals(ctx context.Context, userID string) error {
	_, err := q.db.ExecContext(ctx, deleteCategoryTotals, userID)
	return err
}

const listUserIDs = `SELECT id FROM users ORDER BY id`

func (q *Queries) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listUserIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

const getCategoryTotals = `
SELECT user_id, category, total_cents, expense_count, updated_at
FROM category_totals WHERE user_id = ?
ORDER BY category
`

func (q *Queries) GetCategoryTotals(ctx context.Context, userID string) ([]CategoryTotalRow, error) {
	rows, err := q.db.QueryContext(ctx, getCategoryTotals, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CategoryTotalRow
	for rows.Next() {
		var t CategoryTotalRow
		if err := rows.Scan(&t.UserID, &t.Category, &t.TotalCents, &t.ExpenseCount, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
