// Package payment shapes payment-session calls into results for the view layer and
// formats payment data for display.
package payment

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/muhammadahmed9211/clinic-saas/internal/api"
	"github.com/muhammadahmed9211/clinic-saas/internal/models"
)

// Backend is the slice of the API client the payment flow uses.
type Backend interface {
	CreatePaymentSession(ctx context.Context, req models.PaymentSessionRequest) (*models.PaymentSession, error)
	GetPaymentStatus(ctx context.Context, transactionID string) (*models.PaymentState, error)
	GetPayments(ctx context.Context, userID string) ([]models.Payment, error)
}

type Request struct {
	Amount        float64
	OrderID       string
	Gateway       models.Gateway
	AppointmentID string
}

// InitiateResult hands the redirect to the caller; navigating to RedirectURL leaves
// the application until the gateway returns to a callback route.
type InitiateResult struct {
	Success       bool
	RedirectURL   string
	TransactionID string
	Error         string
}

type StatusResult struct {
	Success bool
	Status  models.PaymentStatus
	Payment *models.Payment
	Error   string
}

type HistoryResult struct {
	Success  bool
	Payments []models.Payment
	Error    string
}

type Service struct {
	backend    Backend
	successURL string
	cancelURL  string
	log        zerolog.Logger
}

func NewService(backend Backend, successURL, cancelURL string, log zerolog.Logger) *Service {
	return &Service{
		backend:    backend,
		successURL: successURL,
		cancelURL:  cancelURL,
		log:        log,
	}
}

func (s *Service) InitiatePayment(ctx context.Context, req Request) InitiateResult {
	session, err := s.backend.CreatePaymentSession(ctx, models.PaymentSessionRequest{
		Amount:        req.Amount,
		OrderID:       req.OrderID,
		Gateway:       req.Gateway,
		AppointmentID: req.AppointmentID,
		SuccessURL:    s.successURL,
		CancelURL:     s.cancelURL,
	})
	if err != nil {
		return InitiateResult{Error: api.Message(err)}
	}

	s.log.Info().
		Str("order_id", req.OrderID).
		Str("gateway", string(req.Gateway)).
		Str("transaction_id", session.TransactionID).
		Msg("payment session created")

	return InitiateResult{
		Success:       true,
		RedirectURL:   session.RedirectURL,
		TransactionID: session.TransactionID,
	}
}

func (s *Service) CheckPaymentStatus(ctx context.Context, transactionID string) StatusResult {
	state, err := s.backend.GetPaymentStatus(ctx, transactionID)
	if err != nil {
		return StatusResult{Error: api.Message(err)}
	}
	return StatusResult{Success: true, Status: state.Status, Payment: state.Payment}
}

func (s *Service) GetPaymentHistory(ctx context.Context, userID string) HistoryResult {
	payments, err := s.backend.GetPayments(ctx, userID)
	if err != nil {
		return HistoryResult{Error: api.Message(err)}
	}
	return HistoryResult{Success: true, Payments: payments}
}

// OrderID is the order reference the backend uses to link a payment to its appointment.
func OrderID(appointmentID string) string {
	return fmt.Sprintf("APPT-%s", appointmentID)
}
