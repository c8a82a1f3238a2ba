package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/arifwid/loan-billing/internal/domain"
	customError "github.com/arifwid/loan-billing/pkg/errors"
)

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

// Create inserts the loan and its initial status row in one transaction, so
// a loan never exists without a status record.
func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan, status *domain.LoanStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	loanQuery := `
		INSERT INTO loans (id, loan_id, principal, start_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err = tx.ExecContext(ctx, loanQuery,
		loan.ID,
		loan.LoanID,
		loan.Principal,
		loan.StartDate,
		loan.CreatedAt,
		loan.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return customError.ErrLoanAlreadyExists
		}
		return err
	}

	statusQuery := `
		INSERT INTO loan_statuses (loan_id, is_delinquent, last_updated)
		VALUES ($1, $2, $3)
	`
	if _, err = tx.ExecContext(ctx, statusQuery,
		status.LoanID,
		status.IsDelinquent,
		status.LastUpdated,
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *loanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.Loan, error) {
	query := `
		SELECT id, loan_id, principal, start_date, created_at, updated_at
		FROM loans
		WHERE loan_id = $1
	`

	var loan domain.Loan
	if err := r.db.GetContext(ctx, &loan, query, loanID); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) ListLoanIDs(ctx context.Context) ([]string, error) {
	query := `SELECT loan_id FROM loans ORDER BY created_at`

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, err
	}

	return ids, nil
}

// Delete removes the loan's payments and status before the loan row itself.
// The loan is the aggregate root; its children are deleted explicitly rather
// than through ON DELETE CASCADE.
func (r *loanRepository) Delete(ctx context.Context, loanID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `DELETE FROM payments WHERE loan_id = $1`, loanID); err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM loan_statuses WHERE loan_id = $1`, loanID); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM loans WHERE loan_id = $1`, loanID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return tx.Commit()
}
