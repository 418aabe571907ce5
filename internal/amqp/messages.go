package amqp

import (
	"encoding/json"
	"time"
)

// ExpenseCreatedMessage announces a stored expense to the rollup worker.
// It carries identifiers plus the aggregation keys; the worker fetches the
// full row from the database when it needs more.
type ExpenseCreatedMessage struct {
	ExpenseID   string    `json:"expense_id"`
	UserID      string    `json:"user_id"`
	Category    string    `json:"category"`
	AmountCents int64     `json:"amount_cents"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewExpenseCreatedMessage(expenseID, userID, category string, amountCents int64) *ExpenseCreatedMessage {
	return &ExpenseCreatedMessage{
		ExpenseID:   expenseID,
		UserID:      userID,
		Category:    category,
		AmountCents: amountCents,
		Timestamp:   time.Now(),
	}
}

func (m *ExpenseCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseCreatedMessageFromJSON(data []byte) (*ExpenseCreatedMessage, error) {
	var msg ExpenseCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
