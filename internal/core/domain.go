package core

import (
	"errors"
	"strings"
	"time"
)

const (
	CategoryFood           Category = "food"
	CategoryTransportation Category = "transportation"
	CategoryEntertainment  Category = "entertainment"
	CategoryShopping       Category = "shopping"
	CategoryHealthcare     Category = "healthcare"
	CategoryUtilities      Category = "utilities"
	CategoryHousing        Category = "housing"
	CategoryOther          Category = "other"
)

const (
	Weekly  BudgetPeriod = "WEEKLY"
	Monthly BudgetPeriod = "MONTHLY"
	Yearly  BudgetPeriod = "YEARLY"
)

type (
	Category string

	BudgetPeriod string

	Money struct {
		Cents int64
	}

	// Identity is the authenticated user handed to the pipeline by the
	// session layer. The pipeline never authenticates; it only consumes this.
	Identity struct {
		ID    string
		Email string
	}

	// ExpenseCandidate is the structured record extracted from a transcript.
	// It is untrusted until it passes ValidateCandidate.
	ExpenseCandidate struct {
		Amount      Money
		Category    Category
		Description string
		Date        time.Time // zero when the model omitted or garbled it
	}

	Budget struct {
		ID        string
		UserID    string
		Category  Category
		Amount    Money
		Period    BudgetPeriod
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Expense struct {
		ID            string
		UserID        string
		BudgetID      *string // nil when no budget matches the category
		Amount        Money
		Category      Category
		Description   string
		Transcription string // verbatim transcript that produced this record
		SpentAt       time.Time
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrUnknownCategory  = errors.New("unknown category")
	ErrInvalidPeriod    = errors.New("invalid budget period")
)

// Categories returns the fixed category enum in declaration order.
func Categories() []Category {
	return []Category{
		CategoryFood, CategoryTransportation, CategoryEntertainment,
		CategoryShopping, CategoryHealthcare, CategoryUtilities,
		CategoryHousing, CategoryOther,
	}
}

// CategoryNames returns the enum as plain strings, for prompts and schemas.
func CategoryNames() []string {
	cats := Categories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return names
}

func (c Category) Valid() bool {
	switch c {
	case CategoryFood, CategoryTransportation, CategoryEntertainment,
		CategoryShopping, CategoryHealthcare, CategoryUtilities,
		CategoryHousing, CategoryOther:
		return true
	}
	return false
}

func (p BudgetPeriod) Valid() bool {
	switch p {
	case Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (b Budget) Validate() error {
	if !b.Category.Valid() {
		return ErrUnknownCategory
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if !b.Period.Valid() {
		return ErrInvalidPeriod
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if !e.Category.Valid() {
		return ErrUnknownCategory
	}
	return nil
}
