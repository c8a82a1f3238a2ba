package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arifwid/loan-billing/internal/domain"
	"github.com/arifwid/loan-billing/internal/mocks"
	"github.com/arifwid/loan-billing/internal/service"
	"github.com/arifwid/loan-billing/pkg/response"
)

func setupRouter(loanRepo *mocks.MockLoanRepository, paymentRepo *mocks.MockPaymentRepository, statusRepo *mocks.MockStatusRepository) http.Handler {
	svc := service.NewBillingService(loanRepo, paymentRepo, statusRepo, nil, nil, time.Hour)
	h := NewBillingHandler(svc, nil)
	return NewRouter(h, nil, zap.NewNop())
}

func TestCreateLoanHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		setupMocks     func(*mocks.MockLoanRepository)
		expectedStatus int
	}{
		{
			name: "Success",
			body: `{"loan_id":"LOAN123","principal":"1000000"}`,
			setupMocks: func(loanRepo *mocks.MockLoanRepository) {
				loanRepo.On("GetByLoanID", mock.Anything, "LOAN123").Return(nil, sql.ErrNoRows)
				loanRepo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Malformed body",
			body:           `{"loan_id":`,
			setupMocks:     func(loanRepo *mocks.MockLoanRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Missing loan_id",
			body:           `{"principal":"1000000"}`,
			setupMocks:     func(loanRepo *mocks.MockLoanRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Negative principal",
			body:           `{"loan_id":"LOAN123","principal":"-5"}`,
			setupMocks:     func(loanRepo *mocks.MockLoanRepository) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "Duplicate loan",
			body: `{"loan_id":"LOAN123","principal":"1000000"}`,
			setupMocks: func(loanRepo *mocks.MockLoanRepository) {
				loanRepo.On("GetByLoanID", mock.Anything, "LOAN123").Return(&domain.Loan{LoanID: "LOAN123"}, nil)
			},
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loanRepo := &mocks.MockLoanRepository{}
			tt.setupMocks(loanRepo)

			router := setupRouter(loanRepo, &mocks.MockPaymentRepository{}, &mocks.MockStatusRepository{})

			req := httptest.NewRequest(http.MethodPost, "/api/v1/loans", bytes.NewBufferString(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			loanRepo.AssertExpectations(t)
		})
	}
}

func TestRecordPaymentHandler(t *testing.T) {
	t.Run("Unknown loan returns 404", func(t *testing.T) {
		loanRepo := &mocks.MockLoanRepository{}
		loanRepo.On("GetByLoanID", mock.Anything, "MISSING").Return(nil, sql.ErrNoRows)

		router := setupRouter(loanRepo, &mocks.MockPaymentRepository{}, &mocks.MockStatusRepository{})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/MISSING/payment", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Duplicate calendar week returns 409", func(t *testing.T) {
		loanRepo := &mocks.MockLoanRepository{}
		paymentRepo := &mocks.MockPaymentRepository{}

		loan := &domain.Loan{LoanID: "LOAN123", StartDate: time.Now()}
		loanRepo.On("GetByLoanID", mock.Anything, "LOAN123").Return(loan, nil)
		paymentRepo.On("GetByLoanID", mock.Anything, "LOAN123").Return([]*domain.Payment{}, nil)
		paymentRepo.On("ExistsForWeek", mock.Anything, "LOAN123", 1).Return(true, nil)

		router := setupRouter(loanRepo, paymentRepo, &mocks.MockStatusRepository{})

		req := httptest.NewRequest(http.MethodPost, "/api/v1/loans/LOAN123/payment", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestGetStatusHandler(t *testing.T) {
	loanRepo := &mocks.MockLoanRepository{}
	statusRepo := &mocks.MockStatusRepository{}

	statusRepo.On("GetByLoanID", mock.Anything, "LOAN123").Return(&domain.LoanStatus{
		LoanID:       "LOAN123",
		IsDelinquent: false,
		LastUpdated:  time.Now(),
	}, nil)

	router := setupRouter(loanRepo, &mocks.MockPaymentRepository{}, statusRepo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/loans/LOAN123/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var envelope response.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.True(t, envelope.Success)

	data, ok := envelope.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "LOAN123", data["loan_id"])
	assert.Equal(t, false, data["is_delinquent"])
}

func TestDeleteLoanHandler(t *testing.T) {
	t.Run("Success returns 204", func(t *testing.T) {
		loanRepo := &mocks.MockLoanRepository{}
		loanRepo.On("Delete", mock.Anything, "LOAN123").Return(nil)

		router := setupRouter(loanRepo, &mocks.MockPaymentRepository{}, &mocks.MockStatusRepository{})

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/loans/LOAN123", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("Unknown loan returns 404", func(t *testing.T) {
		loanRepo := &mocks.MockLoanRepository{}
		loanRepo.On("Delete", mock.Anything, "MISSING").Return(sql.ErrNoRows)

		router := setupRouter(loanRepo, &mocks.MockPaymentRepository{}, &mocks.MockStatusRepository{})

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/loans/MISSING", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
