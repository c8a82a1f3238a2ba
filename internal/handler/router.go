package handler

import (
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter wires the HTTP surface around the billing service.
func NewRouter(billingHandler *BillingHandler, healthHandler *HealthHandler, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(Logging(logger))

	if healthHandler != nil {
		router.HandleFunc("/health", healthHandler.Health).Methods("GET")
		router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/loans", billingHandler.CreateLoan).Methods("POST")
	api.HandleFunc("/loans/{loanId}", billingHandler.DeleteLoan).Methods("DELETE")
	api.HandleFunc("/loans/{loanId}/schedule", billingHandler.GetSchedule).Methods("GET")
	api.HandleFunc("/loans/{loanId}/outstanding", billingHandler.GetOutstanding).Methods("GET")
	api.HandleFunc("/loans/{loanId}/payment", billingHandler.RecordPayment).Methods("POST")
	api.HandleFunc("/loans/{loanId}/status", billingHandler.GetStatus).Methods("GET")

	return router
}
