package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/arifwid/loan-billing/internal/billing"
	"github.com/arifwid/loan-billing/internal/domain"
	"github.com/arifwid/loan-billing/internal/repository"
	customError "github.com/arifwid/loan-billing/pkg/errors"
)

const statusCachePrefix = "loan:status:"

// BillingService orchestrates the amortization engine over the stores. All
// calendar-dependent decisions go through the injected clock so behavior is
// deterministic under test.
type BillingService struct {
	loanRepo    repository.LoanRepository
	paymentRepo repository.PaymentRepository
	statusRepo  repository.StatusRepository
	cache       *redis.Client
	logger      *zap.Logger
	statusTTL   time.Duration
	now         func() time.Time
}

func NewBillingService(
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	statusRepo repository.StatusRepository,
	cache *redis.Client,
	logger *zap.Logger,
	statusTTL time.Duration,
) *BillingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingService{
		loanRepo:    loanRepo,
		paymentRepo: paymentRepo,
		statusRepo:  statusRepo,
		cache:       cache,
		logger:      logger,
		statusTTL:   statusTTL,
		now:         time.Now,
	}
}

// CreateLoan creates a loan with its initial, non-delinquent status record.
func (s *BillingService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error) {
	if request.Principal.IsNegative() {
		return nil, customError.WrapValidationError(errors.New("principal must not be negative"))
	}

	existing, err := s.loanRepo.GetByLoanID(ctx, request.LoanID)
	if err == nil && existing != nil {
		return nil, customError.WrapLoanAlreadyExists(request.LoanID)
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapDatabaseError(err)
	}

	now := s.now()
	loan := &domain.Loan{
		ID:        uuid.New(),
		LoanID:    request.LoanID,
		Principal: request.Principal,
		StartDate: now.UTC().Truncate(24 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}
	status := &domain.LoanStatus{
		LoanID:       request.LoanID,
		IsDelinquent: false,
		LastUpdated:  now,
	}

	if err := s.loanRepo.Create(ctx, loan, status); err != nil {
		// Lost a race on the unique loan_id constraint.
		if errors.Is(err, customError.ErrLoanAlreadyExists) {
			return nil, customError.WrapLoanAlreadyExists(request.LoanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.CreateLoanResponse{
		Loan:          loan,
		TotalAmount:   billing.TotalAmount(loan.Principal),
		WeeklyPayment: billing.WeeklyPayment(loan.Principal),
	}, nil
}

// GetSchedule returns the full 50-week repayment schedule derived from the
// loan terms and the recorded payments. The last week's due amount absorbs
// the rounding remainder so the schedule sums to the total amount.
func (s *BillingService) GetSchedule(ctx context.Context, loanID string) (*domain.ScheduleResponse, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	byWeek := make(map[int]*domain.Payment, len(payments))
	for _, p := range payments {
		byWeek[p.WeekNumber] = p
	}

	weekly := billing.WeeklyPayment(loan.Principal)
	final := billing.FinalDueAmount(loan.Principal)

	schedule := make([]*domain.ScheduleEntry, 0, billing.TermWeeks)
	for week := 1; week <= billing.TermWeeks; week++ {
		entry := &domain.ScheduleEntry{
			WeekNumber: week,
			DueAmount:  weekly,
		}
		if week == billing.TermWeeks {
			entry.DueAmount = final
		}
		if p, ok := byWeek[week]; ok {
			entry.Paid = true
			paidAt := p.PaidAt
			entry.PaidAt = &paidAt
		}
		schedule = append(schedule, entry)
	}

	return &domain.ScheduleResponse{LoanID: loanID, Schedule: schedule}, nil
}

// GetOutstanding returns the outstanding balance for a loan, floored at zero.
func (s *BillingService) GetOutstanding(ctx context.Context, loanID string) (*domain.OutstandingResponse, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	paid := make([]decimal.Decimal, 0, len(payments))
	for _, p := range payments {
		paid = append(paid, p.Amount)
	}

	return &domain.OutstandingResponse{
		LoanID:      loanID,
		Outstanding: billing.OutstandingBalance(loan.Principal, paid),
	}, nil
}

// RecordPayment credits one weekly installment to the loan.
//
// The payment is credited to the earliest unpaid week (so a missed week is
// backfilled before the schedule advances), while the duplicate guard keys
// on the *calendar* current week. The asymmetry is deliberate and preserved
// from the upstream billing rules: a catch-up payment is rejected whenever a
// payment already exists for the calendar week, even though it would have
// been credited to an older week.
func (s *BillingService) RecordPayment(ctx context.Context, loanID string) (*domain.Payment, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	paidWeeks := make([]int, 0, len(payments))
	for _, p := range payments {
		paidWeeks = append(paidWeeks, p.WeekNumber)
	}

	nextWeek, ok := billing.NextPaymentWeek(paidWeeks)
	if !ok {
		return nil, customError.WrapLoanFullyPaid(loanID)
	}

	now := s.now()
	currentWeek := billing.CurrentWeek(loan.StartDate, now)

	exists, err := s.paymentRepo.ExistsForWeek(ctx, loanID, currentWeek)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if exists {
		return nil, customError.WrapDuplicateWeekPayment(currentWeek)
	}

	payment := &domain.Payment{
		ID:         uuid.New(),
		LoanID:     loanID,
		Amount:     billing.WeeklyPayment(loan.Principal),
		WeekNumber: nextWeek,
		PaidAt:     now,
	}
	status := &domain.LoanStatus{
		LoanID:       loanID,
		IsDelinquent: billing.IsDelinquent(currentWeek, append(paidWeeks, nextWeek)),
		LastUpdated:  now,
	}

	if err := s.paymentRepo.CreateWithStatus(ctx, payment, status); err != nil {
		// Lost a race on the unique (loan_id, week_number) constraint.
		if errors.Is(err, customError.ErrDuplicateWeekPayment) {
			return nil, customError.WrapDuplicateWeekPayment(nextWeek)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	s.invalidateStatusCache(ctx, loanID)

	return payment, nil
}

// GetStatus returns the delinquency status, read through the redis cache.
// Cache failures are logged and fall back to the database.
func (s *BillingService) GetStatus(ctx context.Context, loanID string) (*domain.LoanStatus, error) {
	if cached := s.getCachedStatus(ctx, loanID); cached != nil {
		return cached, nil
	}

	status, err := s.statusRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}

	s.setCachedStatus(ctx, status)

	return status, nil
}

// RefreshStatus recomputes and persists delinquency for a loan at the
// current time. The engine itself never self-triggers; this is for callers
// that want a recompute outside the payment path, like the scheduler.
func (s *BillingService) RefreshStatus(ctx context.Context, loanID string) (*domain.LoanStatus, error) {
	loan, err := s.getLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	payments, err := s.paymentRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	paidWeeks := make([]int, 0, len(payments))
	for _, p := range payments {
		paidWeeks = append(paidWeeks, p.WeekNumber)
	}

	now := s.now()
	status := &domain.LoanStatus{
		LoanID:       loanID,
		IsDelinquent: billing.IsDelinquent(billing.CurrentWeek(loan.StartDate, now), paidWeeks),
		LastUpdated:  now,
	}

	if err := s.statusRepo.Update(ctx, status); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.invalidateStatusCache(ctx, loanID)

	return status, nil
}

// RefreshAllStatuses recomputes delinquency for every loan. Per-loan
// failures are logged and skipped so one bad loan does not stall the sweep.
func (s *BillingService) RefreshAllStatuses(ctx context.Context) error {
	ids, err := s.loanRepo.ListLoanIDs(ctx)
	if err != nil {
		return customError.WrapDatabaseError(err)
	}

	for _, id := range ids {
		if _, err := s.RefreshStatus(ctx, id); err != nil {
			s.logger.Warn("refresh status failed",
				zap.String("loan_id", id),
				zap.Error(err))
		}
	}

	return nil
}

// DeleteLoan removes a loan together with its payments and status record.
func (s *BillingService) DeleteLoan(ctx context.Context, loanID string) error {
	if err := s.loanRepo.Delete(ctx, loanID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customError.WrapLoanNotFound(loanID)
		}
		return customError.WrapDatabaseError(err)
	}

	s.invalidateStatusCache(ctx, loanID)

	return nil
}

func (s *BillingService) getLoan(ctx context.Context, loanID string) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapLoanNotFound(loanID)
		}
		return nil, customError.WrapDatabaseError(err)
	}
	return loan, nil
}

func (s *BillingService) getCachedStatus(ctx context.Context, loanID string) *domain.LoanStatus {
	if s.cache == nil {
		return nil
	}

	raw, err := s.cache.Get(ctx, statusCachePrefix+loanID).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("status cache read failed", zap.String("loan_id", loanID), zap.Error(err))
		}
		return nil
	}

	var status domain.LoanStatus
	if err := json.Unmarshal([]byte(raw), &status); err != nil {
		s.logger.Warn("status cache decode failed", zap.String("loan_id", loanID), zap.Error(err))
		return nil
	}

	return &status
}

func (s *BillingService) setCachedStatus(ctx context.Context, status *domain.LoanStatus) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(status)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, statusCachePrefix+status.LoanID, raw, s.statusTTL).Err(); err != nil {
		s.logger.Warn("status cache write failed", zap.String("loan_id", status.LoanID), zap.Error(err))
	}
}

func (s *BillingService) invalidateStatusCache(ctx context.Context, loanID string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Del(ctx, statusCachePrefix+loanID).Err(); err != nil {
		s.logger.Warn("status cache invalidation failed", zap.String("loan_id", loanID), zap.Error(err))
	}
}
