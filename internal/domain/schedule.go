package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ScheduleEntry is one week of the repayment schedule. The schedule is not
// persisted; it is derived from the loan terms and the recorded payments.
type ScheduleEntry struct {
	WeekNumber int             `json:"week_number"`
	DueAmount  decimal.Decimal `json:"due_amount"`
	Paid       bool            `json:"paid"`
	PaidAt     *time.Time      `json:"paid_at"`
}

type ScheduleResponse struct {
	LoanID   string           `json:"loan_id"`
	Schedule []*ScheduleEntry `json:"schedule"`
}
