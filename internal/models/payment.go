package models

type Gateway string

const (
	GatewayEasyPaisa Gateway = "easypaisa"
	GatewayJazzCash  Gateway = "jazzcash"
	GatewayCard      Gateway = "card"
)

// Gateways lists the selectable payment methods in display order.
var Gateways = []Gateway{GatewayEasyPaisa, GatewayJazzCash, GatewayCard}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending: {PaymentPaid, PaymentFailed},
	PaymentPaid:    {PaymentRefunded},
}

// CanTransition reports whether the gateway/backend may move a payment between statuses.
// The client only observes these transitions.
func (s PaymentStatus) CanTransition(to PaymentStatus) bool {
	for _, next := range paymentTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Payment struct {
	ID            string        `json:"id"`
	AppointmentID string        `json:"appointment_id"`
	OrderID       string        `json:"order_id,omitempty"`
	Amount        float64       `json:"amount"`
	Gateway       Gateway       `json:"gateway"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id"`
	CreatedAt     string        `json:"created_at"`
}

// PaymentSessionRequest is sent with createPaymentSession.
type PaymentSessionRequest struct {
	Amount        float64 `json:"amount"`
	OrderID       string  `json:"orderId"`
	Gateway       Gateway `json:"gateway"`
	AppointmentID string  `json:"appointmentId"`
	SuccessURL    string  `json:"successUrl"`
	CancelURL     string  `json:"cancelUrl"`
}

type PaymentSession struct {
	RedirectURL   string `json:"redirectUrl"`
	TransactionID string `json:"transactionId"`
}

type PaymentState struct {
	Status  PaymentStatus `json:"status"`
	Payment *Payment      `json:"payment,omitempty"`
}
