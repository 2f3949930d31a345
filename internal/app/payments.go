package app

import (
	"context"

	"github.com/muhammadahmed9211/clinic-saas/internal/models"
	"github.com/muhammadahmed9211/clinic-saas/internal/payment"
	"github.com/muhammadahmed9211/clinic-saas/internal/validate"
)

type PaymentsController struct {
	controller
	service    *payment.Service
	Loading    Loading
	Processing Loading
}

// Summary is the header of the payments screen.
type Summary struct {
	TotalPaid    float64
	Pending      int
	Transactions int
}

func Summarize(payments []models.Payment) Summary {
	s := Summary{Transactions: len(payments)}
	for _, p := range payments {
		switch p.Status {
		case models.PaymentPaid:
			s.TotalPaid += p.Amount
		case models.PaymentPending:
			s.Pending++
		}
	}
	return s
}

func (c *PaymentsController) History(ctx context.Context) []models.Payment {
	user, err := c.currentUser()
	if err != nil {
		return nil
	}

	defer c.Loading.begin()()

	res := c.service.GetPaymentHistory(ctx, user.ID)
	if !res.Success {
		c.log.Error().Str("error", res.Error).Msg("failed to fetch payments")
		return nil
	}
	return res.Payments
}

// Pay starts a gateway session for appt. On success the caller must send the user
// to RedirectURL; the outcome arrives later on the success or cancel route.
func (c *PaymentsController) Pay(ctx context.Context, appt models.Appointment, gateway string) (payment.InitiateResult, bool) {
	if err := validate.Payment(validate.PaymentForm{Gateway: gateway}); err != nil {
		c.notes.Error(err.Error())
		return payment.InitiateResult{}, false
	}

	defer c.Processing.begin()()

	res := c.service.InitiatePayment(ctx, payment.Request{
		Amount:        appt.Fee,
		OrderID:       payment.OrderID(appt.ID),
		Gateway:       models.Gateway(gateway),
		AppointmentID: appt.ID,
	})
	if !res.Success {
		c.notes.Error(orDefault(res.Error, "Failed to initiate payment"))
		return res, false
	}
	return res, true
}

func (c *PaymentsController) Status(ctx context.Context, transactionID string) payment.StatusResult {
	defer c.Loading.begin()()

	res := c.service.CheckPaymentStatus(ctx, transactionID)
	if !res.Success {
		c.notes.Error(orDefault(res.Error, "Failed to check payment status"))
	}
	return res
}
