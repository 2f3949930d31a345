package handlers

import (
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/muhammadahmed9211/clinic-saas/internal/middleware"
)

const landingPage = `<!doctype html>
<html><head><meta charset="utf-8"><title>%s</title></head>
<body><h1>%s</h1><p>%s</p></body></html>`

func (h HandlerSet) PaymentSuccess(c *gin.Context) {
	h.land(c, ResultSuccess)
	renderLanding(c, "Payment received", "Your payment was submitted. You can close this window and return to the terminal.")
}

func (h HandlerSet) PaymentCancel(c *gin.Context) {
	h.land(c, ResultCancel)
	renderLanding(c, "Payment cancelled", "No payment was taken. You can close this window and return to the terminal.")
}

func (h HandlerSet) LastLanding(c *gin.Context) {
	landing, ok := h.landings.Last()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no payment landing yet"})
		return
	}
	c.JSON(http.StatusOK, landing)
}

// land records the redirect as reported; gateways name the parameters differently.
func (h HandlerSet) land(c *gin.Context, result string) {
	landing := Landing{
		Result:        result,
		TransactionID: firstQuery(c, "transactionId", "transaction_id", "txn", "pp_TxnRefNo"),
		OrderID:       firstQuery(c, "orderId", "order_id", "orderRefNum"),
		RequestID:     middleware.RequestIDFrom(c),
		ReceivedAt:    time.Now(),
	}

	h.landings.Record(landing)
	h.metrics.ObservePaymentLanding(result)
	h.log.Info().
		Str("result", result).
		Str("transaction_id", landing.TransactionID).
		Str("order_id", landing.OrderID).
		Str("request_id", landing.RequestID).
		Msg("payment landing")
}

func renderLanding(c *gin.Context, title, body string) {
	page := fmt.Sprintf(landingPage, html.EscapeString(title), html.EscapeString(title), html.EscapeString(body))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func firstQuery(c *gin.Context, keys ...string) string {
	for _, k := range keys {
		if v := c.Query(k); v != "" {
			return v
		}
	}
	return ""
}
