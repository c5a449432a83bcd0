package ledger

import (
	"context"
	"time"
)

const (
	TypeContribution = "contribution"
	TypeExpense      = "expense"
	TypePayout       = "payout"
)

type Transaction struct {
	ID          int64     `json:"id"`
	GroupID     int64     `json:"group_id"`
	UserID      int64     `json:"user_id"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Currency    string    `json:"currency"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	DecisionID  *int64    `json:"decision_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Totals aggregates a group's ledger by transaction type.
type Totals struct {
	Contributions float64 `json:"contributions"`
	Expenses      float64 `json:"expenses"`
	Payouts       float64 `json:"payouts"`
}

// Balance is what the group currently holds.
func (t Totals) Balance() float64 {
	return t.Contributions - t.Expenses - t.Payouts
}

type MemberTotal struct {
	UserID int64   `json:"user_id"`
	Total  float64 `json:"total"`
}

type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	ListByGroup(ctx context.Context, groupID int64, txType *string) ([]Transaction, error)
	TotalsByGroup(ctx context.Context, groupID int64) (Totals, error)
	ContributionsByMember(ctx context.Context, groupID int64) ([]MemberTotal, error)
}
