package repository

// Integration tests against a live postgres. They run only when
// TEST_DATABASE_URL is set, e.g.
//
//	TEST_DATABASE_URL="host=localhost port=5432 user=postgres password=postgres dbname=loan_billing_test sslmode=disable" go test ./internal/repository/

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arifwid/loan-billing/internal/domain"
	customError "github.com/arifwid/loan-billing/pkg/errors"
)

var testDB *sqlx.DB

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../.env")

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		os.Exit(m.Run()) // individual tests skip themselves
	}

	var err error
	testDB, err = sqlx.Connect("postgres", dsn)
	if err != nil {
		panic("failed to connect to test database: " + err.Error())
	}

	if err := Migrate(testDB); err != nil {
		panic("failed to migrate test database: " + err.Error())
	}

	code := m.Run()
	testDB.Close()
	os.Exit(code)
}

func requireDB(t *testing.T) {
	t.Helper()
	if testDB == nil {
		t.Skip("TEST_DATABASE_URL not set")
	}
	_, err := testDB.Exec(`TRUNCATE loans, payments, loan_statuses`)
	require.NoError(t, err)
}

func newTestLoan(loanID string) (*domain.Loan, *domain.LoanStatus) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	loan := &domain.Loan{
		ID:        uuid.New(),
		LoanID:    loanID,
		Principal: decimal.NewFromInt(1000000),
		StartDate: now.Truncate(24 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
	status := &domain.LoanStatus{
		LoanID:      loanID,
		LastUpdated: now,
	}
	return loan, status
}

func TestLoanRepository(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	loanRepo := NewLoanRepository(testDB)
	statusRepo := NewStatusRepository(testDB)

	loan, status := newTestLoan("LOAN-IT-1")
	require.NoError(t, loanRepo.Create(ctx, loan, status))

	t.Run("get by loan id", func(t *testing.T) {
		got, err := loanRepo.GetByLoanID(ctx, "LOAN-IT-1")
		require.NoError(t, err)
		assert.Equal(t, loan.ID, got.ID)
		assert.True(t, got.Principal.Equal(loan.Principal))
	})

	t.Run("status row created with loan", func(t *testing.T) {
		got, err := statusRepo.GetByLoanID(ctx, "LOAN-IT-1")
		require.NoError(t, err)
		assert.False(t, got.IsDelinquent)
	})

	t.Run("unknown loan id", func(t *testing.T) {
		_, err := loanRepo.GetByLoanID(ctx, "NOPE")
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})

	t.Run("list loan ids", func(t *testing.T) {
		ids, err := loanRepo.ListLoanIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"LOAN-IT-1"}, ids)
	})
}

func TestLoanRepositoryDelete(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	loanRepo := NewLoanRepository(testDB)
	paymentRepo := NewPaymentRepository(testDB)

	loan, status := newTestLoan("LOAN-IT-2")
	require.NoError(t, loanRepo.Create(ctx, loan, status))

	payment := &domain.Payment{
		ID:         uuid.New(),
		LoanID:     "LOAN-IT-2",
		Amount:     decimal.NewFromInt(22000),
		WeekNumber: 1,
		PaidAt:     time.Now(),
	}
	require.NoError(t, paymentRepo.CreateWithStatus(ctx, payment, status))

	require.NoError(t, loanRepo.Delete(ctx, "LOAN-IT-2"))

	// Payments and status are removed with the loan.
	payments, err := paymentRepo.GetByLoanID(ctx, "LOAN-IT-2")
	require.NoError(t, err)
	assert.Empty(t, payments)

	var statusCount int
	require.NoError(t, testDB.Get(&statusCount, `SELECT COUNT(*) FROM loan_statuses WHERE loan_id = $1`, "LOAN-IT-2"))
	assert.Zero(t, statusCount)

	assert.ErrorIs(t, loanRepo.Delete(ctx, "LOAN-IT-2"), sql.ErrNoRows)
}

func TestPaymentRepository(t *testing.T) {
	requireDB(t)
	ctx := context.Background()

	loanRepo := NewLoanRepository(testDB)
	paymentRepo := NewPaymentRepository(testDB)
	statusRepo := NewStatusRepository(testDB)

	loan, status := newTestLoan("LOAN-IT-3")
	require.NoError(t, loanRepo.Create(ctx, loan, status))

	record := func(week int, delinquent bool) error {
		return paymentRepo.CreateWithStatus(ctx,
			&domain.Payment{
				ID:         uuid.New(),
				LoanID:     "LOAN-IT-3",
				Amount:     decimal.NewFromInt(22000),
				WeekNumber: week,
				PaidAt:     time.Now(),
			},
			&domain.LoanStatus{
				LoanID:       "LOAN-IT-3",
				IsDelinquent: delinquent,
				LastUpdated:  time.Now(),
			})
	}

	require.NoError(t, record(2, false))
	require.NoError(t, record(1, true))

	t.Run("duplicate week is rejected by the constraint", func(t *testing.T) {
		err := record(1, false)
		assert.ErrorIs(t, err, customError.ErrDuplicateWeekPayment)
	})

	t.Run("payments ordered by week", func(t *testing.T) {
		payments, err := paymentRepo.GetByLoanID(ctx, "LOAN-IT-3")
		require.NoError(t, err)
		require.Len(t, payments, 2)
		assert.Equal(t, 1, payments[0].WeekNumber)
		assert.Equal(t, 2, payments[1].WeekNumber)
	})

	t.Run("exists for week", func(t *testing.T) {
		exists, err := paymentRepo.ExistsForWeek(ctx, "LOAN-IT-3", 1)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = paymentRepo.ExistsForWeek(ctx, "LOAN-IT-3", 5)
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("status updated atomically with payment", func(t *testing.T) {
		got, err := statusRepo.GetByLoanID(ctx, "LOAN-IT-3")
		require.NoError(t, err)
		assert.True(t, got.IsDelinquent) // from the second insert

		// A failed insert must not touch the status row.
		_ = record(1, false)
		got, err = statusRepo.GetByLoanID(ctx, "LOAN-IT-3")
		require.NoError(t, err)
		assert.True(t, got.IsDelinquent)
	})
}
