package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/arifwid/loan-billing/internal/domain"
	customError "github.com/arifwid/loan-billing/pkg/errors"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// CreateWithStatus records the payment and the recomputed status in a single
// transaction; a payment is never visible without its status update. The
// unique (loan_id, week_number) constraint is the safety net against two
// concurrent submissions inserting the same week: the loser of the race
// surfaces ErrDuplicateWeekPayment instead of double-inserting.
func (r *paymentRepository) CreateWithStatus(ctx context.Context, payment *domain.Payment, status *domain.LoanStatus) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	paymentQuery := `
		INSERT INTO payments (id, loan_id, amount, week_number, paid_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err = tx.ExecContext(ctx, paymentQuery,
		payment.ID,
		payment.LoanID,
		payment.Amount,
		payment.WeekNumber,
		payment.PaidAt,
	); err != nil {
		if isUniqueViolation(err) {
			return customError.ErrDuplicateWeekPayment
		}
		return err
	}

	statusQuery := `
		UPDATE loan_statuses
		SET is_delinquent = $2, last_updated = $3
		WHERE loan_id = $1
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

func (r *paymentRepository) GetByLoanID(ctx context.Context, loanID string) ([]*domain.Payment, error) {
	query := `
		SELECT id, loan_id, amount, week_number, paid_at
		FROM payments
		WHERE loan_id = $1
		ORDER BY week_number
	`

	var payments []*domain.Payment
	if err := r.db.SelectContext(ctx, &payments, query, loanID); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) ExistsForWeek(ctx context.Context, loanID string, weekNumber int) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM payments WHERE loan_id = $1 AND week_number = $2)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, loanID, weekNumber); err != nil {
		return false, err
	}

	return exists, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pgerrcode.UniqueViolation
}
