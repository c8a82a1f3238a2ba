package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/arifwid/loan-billing/internal/domain"
)

type statusRepository struct {
	db *sqlx.DB
}

func NewStatusRepository(db *sqlx.DB) StatusRepository {
	return &statusRepository{db: db}
}

func (r *statusRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.LoanStatus, error) {
	query := `
		SELECT loan_id, is_delinquent, last_updated
		FROM loan_statuses
		WHERE loan_id = $1
	`

	var status domain.LoanStatus
	if err := r.db.GetContext(ctx, &status, query, loanID); err != nil {
		return nil, err
	}

	return &status, nil
}

func (r *statusRepository) Update(ctx context.Context, status *domain.LoanStatus) error {
	query := `
		UPDATE loan_statuses
		SET is_delinquent = $2, last_updated = $3
		WHERE loan_id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		status.LoanID,
		status.IsDelinquent,
		status.LastUpdated,
	)

	return err
}
