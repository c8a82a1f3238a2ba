package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Loan represents the immutable terms of a weekly installment loan. The
// repayment amounts are derived from the principal, never stored.
type Loan struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	LoanID    string          `json:"loan_id" db:"loan_id"`
	Principal decimal.Decimal `json:"principal" db:"principal"`
	StartDate time.Time       `json:"start_date" db:"start_date"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	LoanID    string          `json:"loan_id" validate:"required,max=50"`
	Principal decimal.Decimal `json:"principal" validate:"gte=0"`
}

type CreateLoanResponse struct {
	Loan          *Loan           `json:"loan"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	WeeklyPayment decimal.Decimal `json:"weekly_payment"`
}

type OutstandingResponse struct {
	LoanID      string          `json:"loan_id"`
	Outstanding decimal.Decimal `json:"outstanding"`
}
