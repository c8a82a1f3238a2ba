package repository

import (
	"context"

	"github.com/arifwid/loan-billing/internal/domain"
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create creates a new loan together with its initial status record
	Create(ctx context.Context, loan *domain.Loan, status *domain.LoanStatus) error

	// GetByLoanID retrieves a loan by its loan ID
	GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error)

	// ListLoanIDs returns the identifiers of all loans
	ListLoanIDs(ctx context.Context) ([]string, error)

	// Delete removes a loan and, explicitly, its payments and status record
	Delete(ctx context.Context, loanID string) error
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// CreateWithStatus records a payment and persists the recomputed loan
	// status as one atomic unit
	CreateWithStatus(ctx context.Context, payment *domain.Payment, status *domain.LoanStatus) error

	// GetByLoanID retrieves all payments for a loan ordered by week number
	GetByLoanID(ctx context.Context, loanID string) ([]*domain.Payment, error)

	// ExistsForWeek reports whether a payment is recorded for the given week
	ExistsForWeek(ctx context.Context, loanID string, weekNumber int) (bool, error)
}

// StatusRepository defines the interface for loan status operations
type StatusRepository interface {
	// GetByLoanID retrieves the status record for a loan
	GetByLoanID(ctx context.Context, loanID string) (*domain.LoanStatus, error)

	// Update persists a recomputed status record
	Update(ctx context.Context, status *domain.LoanStatus) error
}
