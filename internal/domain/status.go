package domain

import "time"

// LoanStatus is the one-to-one delinquency record for a loan. LastUpdated is
// refreshed on every recompute, even when the flag does not change.
type LoanStatus struct {
	LoanID       string    `json:"loan_id" db:"loan_id"`
	IsDelinquent bool      `json:"is_delinquent" db:"is_delinquent"`
	LastUpdated  time.Time `json:"last_updated" db:"last_updated"`
}

type StatusResponse struct {
	LoanID       string    `json:"loan_id"`
	IsDelinquent bool      `json:"is_delinquent"`
	LastUpdated  time.Time `json:"last_updated"`
}
