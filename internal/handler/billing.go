package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/arifwid/loan-billing/internal/domain"
	"github.com/arifwid/loan-billing/internal/service"
	customError "github.com/arifwid/loan-billing/pkg/errors"
	"github.com/arifwid/loan-billing/pkg/response"
)

type BillingHandler struct {
	service   *service.BillingService
	validator *validator.Validate
	logger    *zap.Logger
}

func NewBillingHandler(service *service.BillingService, logger *zap.Logger) *BillingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}

	v := validator.New()
	// Teach the validator to treat shopspring decimals as numbers so gte/gt
	// tags work on money fields.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})

	return &BillingHandler{
		service:   service,
		validator: v,
		logger:    logger,
	}
}

func (h *BillingHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return
	}

	if err := h.validator.Struct(&request); err != nil {
		response.BadRequest(w, "request validation failed", err)
		return
	}

	resp, err := h.service.CreateLoan(r.Context(), &request)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, resp)
}

func (h *BillingHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	resp, err := h.service.GetSchedule(r.Context(), loanID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, resp)
}

func (h *BillingHandler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	resp, err := h.service.GetOutstanding(r.Context(), loanID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, resp)
}

func (h *BillingHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	payment, err := h.service.RecordPayment(r.Context(), loanID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, payment)
}

func (h *BillingHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	status, err := h.service.GetStatus(r.Context(), loanID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, &domain.StatusResponse{
		LoanID:       status.LoanID,
		IsDelinquent: status.IsDelinquent,
		LastUpdated:  status.LastUpdated,
	})
}

func (h *BillingHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	if err := h.service.DeleteLoan(r.Context(), loanID); err != nil {
		h.writeError(w, err)
		return
	}

	response.NoContent(w)
}

func (h *BillingHandler) writeError(w http.ResponseWriter, err error) {
	var be *customError.BusinessError
	if !errors.As(err, &be) {
		h.logger.Error("unexpected error", zap.Error(err))
		response.InternalServerError(w, "internal server error", nil)
		return
	}

	switch be.Code {
	case customError.ErrCodeLoanNotFound:
		response.NotFound(w, be.Message)
	case customError.ErrCodeLoanAlreadyExists, customError.ErrCodeDuplicateWeekPayment:
		response.Conflict(w, be.Message, be.Err)
	case customError.ErrCodeLoanFullyPaid:
		response.UnprocessableEntity(w, be.Message, be.Err)
	case customError.ErrCodeValidation:
		response.BadRequest(w, be.Message, be.Err)
	default:
		h.logger.Error("request failed", zap.String("code", be.Code), zap.Error(be))
		response.InternalServerError(w, be.Message, nil)
	}
}
