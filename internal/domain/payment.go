package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is a single recorded installment. The amount is always the loan's
// weekly payment at the time of recording; callers never supply it. Payments
// are append-only and unique per (loan_id, week_number).
type Payment struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	LoanID     string          `json:"loan_id" db:"loan_id"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	WeekNumber int             `json:"week_number" db:"week_number"`
	PaidAt     time.Time       `json:"paid_at" db:"paid_at"`
}
